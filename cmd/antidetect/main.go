// Command antidetect provisions anti-detect cloud browsers from GoLogin or
// Multilogin, drives them through a scripted login and saves screenshots.
package main

import "github.com/kornev-zhora/anti-detect-browsing/internal/cli"

func main() {
	cli.Execute()
}
