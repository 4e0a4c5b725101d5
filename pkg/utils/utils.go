// Package utils provides common utility functions used across the
// application, including content truncation, line numbering and binary
// file detection.
package utils

import (
	"fmt"
	"os"
	"strconv"
)

// ContentWithLineNumber formats a slice of strings by prefixing each line with its line number
// starting from the given offset, with appropriate padding for alignment.
func ContentWithLineNumber(lines []string, offset int) string {
	var result string
	maxLineWidth := 1

	if len(lines) > 0 {
		maxLineNum := offset + len(lines) - 1
		maxLineWidth = len(strconv.Itoa(maxLineNum))
	}

	// Format lines with appropriate padding
	for i, line := range lines {
		lineNum := offset + i
		paddedLineNum := fmt.Sprintf("%*d", maxLineWidth, lineNum)
		result += fmt.Sprintf("%s: %s\n", paddedLineNum, line)
	}

	return result
}

// TruncateContent caps content at maxChars runes-safe on byte boundaries,
// appending a marker when anything was cut off.
func TruncateContent(content string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(content) <= maxChars {
		return content, false
	}

	cut := maxChars
	// Back up to a rune boundary so we never split a multi-byte character
	for cut > 0 && (content[cut]&0xC0) == 0x80 {
		cut--
	}

	return content[:cut] + "\n... (content truncated)", true
}

// IsBinaryFile checks if a file is binary by reading the first 512 bytes
// and looking for NULL bytes which indicate binary content
func IsBinaryFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return false
	}
	buf = buf[:n]

	for _, b := range buf {
		if b == 0 {
			return true
		}
	}

	return false
}
