package main

import "shiori/internal/shiori"

func main() {
	shiori.Main()
}
