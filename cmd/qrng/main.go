package main

import "github.com/TheusHen/qrng/internal/cmd"

func main() {
	cmd.Execute()
}
