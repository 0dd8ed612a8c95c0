package logging

import "log"

// ============================================================
// Package Logger
// ============================================================

// Logf: общий диагностический логгер сервиса. По умолчанию log.Printf,
// тесты и CLI могут перенаправить или заглушить его через SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger заменяет логгер. nil отключает вывод.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
