package cmd

import (
	"errors"
	"fmt"
)

const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitPathNotFound = 2
)

// ExitError 携带进程退出码。
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Msg
}

// ExitCode 把命令返回的错误映射为退出码。
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
