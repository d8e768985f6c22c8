package connector

import (
	"bufio"
	"fmt"
	"io"
	"iter"
)

// calcLineChunksFromReader partitions r into byte ranges of linesPerChunk
// lines each, shared by any Connector variant that only has a stream
// reader to work with (no random-access line index). The last chunk's end
// equals the total content length minus one, the same inclusive
// convention every chunk uses.
func calcLineChunksFromReader(r io.Reader, linesPerChunk int) iter.Seq2[ByteRange, error] {
	return func(yield func(ByteRange, error) bool) {
		reader := bufio.NewReader(r)
		var offset int64
		var chunkStart int64
		var linesInChunk int

		for {
			line, readErr := reader.ReadBytes('\n')
			offset += int64(len(line))
			if len(line) > 0 {
				linesInChunk++
			}
			if linesInChunk >= linesPerChunk {
				if !yield(ByteRange{Start: chunkStart, End: offset - 1}, nil) {
					return
				}
				chunkStart = offset
				linesInChunk = 0
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				yield(ByteRange{}, fmt.Errorf("reading line chunks: %w", readErr))
				return
			}
		}
		if chunkStart < offset {
			yield(ByteRange{Start: chunkStart, End: offset - 1}, nil)
		}
	}
}
