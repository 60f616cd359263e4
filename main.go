/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/cloudacct/accountsvc/cmd"

func main() {
	cmd.Execute()
}
