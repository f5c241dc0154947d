// Package main is the docindex CLI entry point.
package main

func main() {
	Execute()
}
