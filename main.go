package main

import "github.com/piae/company-expenses/cmd"

func main() {
	cmd.Execute()
}
