package main

import (
	"os"
	"os/signal"
)

func watch(sigChan chan os.Signal, handle func(os.Signal)) func() {
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			handle(sig)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
