// Package main provides the notekeeper command.
package main

func main() {
	Execute()
}
