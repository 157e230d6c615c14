package utils

import (
	"errors"
	"io"
)

func Any[T any](xs []T, pred func(T) bool) bool {
	for _, x := range xs {
		if pred(x) {
			return true
		}
	}
	return false
}

func ReadToEnd(r io.Reader) ([]byte, error) {
	buffer := make([]byte, 1024*8)
	result := []byte{}
	for {
		numRead, err := r.Read(buffer)
		result = append(result, buffer[:numRead]...)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
