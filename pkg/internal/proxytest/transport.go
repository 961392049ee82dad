package proxytest

import (
	"io"
)

func transport(rw1, rw2 io.ReadWriter) error {
	errc := make(chan error, 2)
	go func() {
		errc <- copyBuffer(rw1, rw2)
	}()

	go func() {
		errc <- copyBuffer(rw2, rw1)
	}()

	err := <-errc
	if err != nil && err == io.EOF {
		err = nil
	}
	return err
}

func copyBuffer(dst io.Writer, src io.Reader) error {
	buf := make([]byte, 16*1024)
	_, err := io.CopyBuffer(dst, src, buf)
	return err
}
