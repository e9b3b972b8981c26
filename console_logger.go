package sitrapesca

import (
	"fmt"
	"time"
)

type ConsoleLogger struct {
	Timestamps bool
}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	if logger.Timestamps {
		fmt.Print(time.Now().Format("15:04:05 "))
	}
	fmt.Printf(format, a...)
	fmt.Println()
}
