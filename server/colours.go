package server

import (
	"fmt"

	"github.com/fatih/color"
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgBlue),
	"PUT":    color.New(color.FgCyan),
	"DELETE": color.New(color.FgYellow),
	"PATCH":  color.New(color.FgMagenta),
}

var (
	gray = color.New(color.FgHiBlack)
	red  = color.New(color.FgRed)
)

func colorMethod(method string) string {
	padded := fmt.Sprintf(" %-7s", method)
	if c, ok := methodColors[method]; ok {
		return c.Sprint(padded)
	}
	return gray.Sprint(padded)
}

func colorStatus(status int) string {
	if status >= 400 {
		return red.Sprint(status)
	}
	return gray.Sprint(status)
}
