// Command kld links ELF32 relocatable objects and ar archives into a
// MENUET01 flat-binary executable.
package main

func main() {
	Execute()
}
