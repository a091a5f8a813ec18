package auth

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineReader supplies one line of user input, blocking until it is available.
type LineReader interface {
	ReadLine() (string, error)
}

// ConsoleReader reads lines from a terminal or any other [io.Reader].
type ConsoleReader struct {
	r *bufio.Reader
}

// NewConsoleReader creates a [ConsoleReader] over r.
func NewConsoleReader(r io.Reader) *ConsoleReader {
	return &ConsoleReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its terminator. A final line without a newline is returned
// as is; EOF with nothing read is an error.
func (c *ConsoleReader) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
