/*
Copyright © 2025 Genograb Contributors
*/
package main

import "github.com/trobanga/genograb/cmd"

func main() {
	cmd.Execute()
}
