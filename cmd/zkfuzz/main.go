package main

import "github.com/Koukyosyumei/zkFuzz/pkg/cmd"

func main() {
	cmd.Execute()
}
