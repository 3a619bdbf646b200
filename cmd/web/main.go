package main

import "platefuel_backend/internal/app"

func main() {
	app.Run()
}
