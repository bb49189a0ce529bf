// cspr-cli builds, signs, stores and sends Casper deploys.
package main

import "github.com/cspr-tools/cspr/cli/cmd"

func main() { cmd.Execute() }
