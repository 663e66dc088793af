// Package main is the entry point for the checked command line tool.
package main

func main() {
	Execute()
}
