package main

import "bookmarks-browser/cmd"

func main() {
	cmd.Execute()
}
