package main

import (
	"fmt"

	"github.com/fatih/color"
)

func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// consoleReporter renders pipeline progress on stdout.
type consoleReporter struct{}

func (consoleReporter) Headerf(format string, args ...any) {
	fmt.Println(fmt.Sprintf(format, args...))
}

func (consoleReporter) Stagef(num, total int, format string, args ...any) {
	fmt.Printf("%s %s\n", color.CyanString("[%d/%d]", num, total), fmt.Sprintf(format, args...))
}

func (consoleReporter) Skipf(num, total int, format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("[%d/%d]", num, total), fmt.Sprintf(format, args...))
}

func (consoleReporter) Infof(format string, args ...any) {
	fmt.Println(fmt.Sprintf(format, args...))
}

func (consoleReporter) Successf(format string, args ...any) {
	printSuccess(format, args...)
}

func (consoleReporter) Errorf(format string, args ...any) {
	printError(format, args...)
}
