package main

import "github.com/MeKo-Tech/pinmap/internal/cmd"

func main() {
	cmd.Execute()
}
