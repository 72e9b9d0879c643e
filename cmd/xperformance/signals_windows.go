//go:build windows

package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/windows"
)

// notifySignals 调用 handle 处理第一个中断信号，返回的函数停止监听
func notifySignals(handle func(os.Signal)) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, windows.SIGTERM)
	return watch(sigChan, handle)
}
