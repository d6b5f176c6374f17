// Command syncenginectl is both the sync engine's server and its
// operator CLI, grounded on the teacher's cmd/hermod (server) and
// cmd/hermodctl (cobra CLI) split, unified into one binary.
package main

func main() {
	Execute()
}
