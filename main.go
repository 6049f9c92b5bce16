package main

import "weel-backend/internal/app"

// @title        WEEL Backend API
// @version      1.0
// @description  Регистрация по SMS-коду, JWT-сессии и привязка банковских карт через UPAY.
func main() {
	app.Run()
}
