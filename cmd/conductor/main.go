// Command conductor answers requests with a planned team of workers.
package main

func main() {
	Execute()
}
