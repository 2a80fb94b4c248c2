package listener

import "os"

// FatalHandler 处理监听器的致命故障（目前只有绑定失败）
//
// 返回值作为 BeginListening 的错误返回。
type FatalHandler func(err error) error

// DefaultFatalHandler 记录日志并返回原错误
func DefaultFatalHandler(err error) error {
	logger.Error("监听器致命故障", "err", err)
	return err
}

// ExitOnFatal 记录日志并终止进程
func ExitOnFatal(err error) error {
	logger.Error("监听器致命故障，进程退出", "err", err)
	os.Exit(1)
	return err
}
