package sse

import (
	"math/rand/v2"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// decodeAll feeds each chunk in order and collects the emitted events.
func decodeAll(chunks ...string) []Event {
	d := NewDecoder()
	var events []Event
	for _, c := range chunks {
		d.Feed([]byte(c), func(ev Event) {
			events = append(events, ev)
		})
	}
	return events
}

var _ = Describe("Decoder", func() {
	Describe("Feed", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				events := decodeAll("data: hello world\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hello world"))
				Expect(events[0].Type).To(BeEmpty())
				Expect(events[0].ID).To(BeEmpty())
			})

			It("parses multiple events", func() {
				events := decodeAll("data: first\n\ndata: second\n\n")
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal("first"))
				Expect(events[1].Data).To(Equal("second"))
			})

			It("parses event type, id and retry", func() {
				events := decodeAll("event: tokens\nid: 42\nretry: 3000\ndata: {\"type\":\"tokens\"}\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Type).To(Equal("tokens"))
				Expect(events[0].ID).To(Equal("42"))
				Expect(events[0].Retry).To(Equal(3000))
				Expect(events[0].Data).To(Equal("{\"type\":\"tokens\"}"))
			})

			It("ignores a non-numeric retry", func() {
				events := decodeAll("retry: soon\ndata: x\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Retry).To(BeZero())
			})

			It("joins multiple data lines with newline", func() {
				events := decodeAll("data: line one\ndata: line two\ndata: line three\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("line one\nline two\nline three"))
			})
		})

		Context("with SSE comments", func() {
			It("ignores comment lines", func() {
				events := decodeAll(": keep-alive\ndata: hello\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hello"))
			})

			It("emits nothing for a comment-only stream", func() {
				Expect(decodeAll(": ping\n\n: ping\n\n")).To(BeEmpty())
			})
		})

		Context("with data field variations", func() {
			It("handles data field with no space after colon", func() {
				events := decodeAll("data:no-space\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("no-space"))
			})

			It("strips only one leading space", func() {
				events := decodeAll("data:  two\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal(" two"))
			})

			It("handles empty data field", func() {
				events := decodeAll("data:\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(BeEmpty())
			})

			It("treats a line with no colon as a field with an empty value", func() {
				events := decodeAll("data\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(BeEmpty())
			})

			It("discards events that carry no data", func() {
				Expect(decodeAll("event: ping\nid: 1\n\n")).To(BeEmpty())
			})
		})

		Context("with line terminators", func() {
			It("accepts CRLF", func() {
				events := decodeAll("data: a\r\n\r\ndata: b\r\n\r\n")
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal("a"))
				Expect(events[1].Data).To(Equal("b"))
			})

			It("accepts bare CR", func() {
				events := decodeAll("data: a\r\rdata: b\r\r")
				Expect(events).To(HaveLen(2))
				Expect(events[1].Data).To(Equal("b"))
			})

			It("treats CRLF split across chunks as one terminator", func() {
				events := decodeAll("data: a\r", "\n\r", "\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("a"))
			})
		})

		Context("edge cases", func() {
			It("emits nothing on empty input", func() {
				Expect(decodeAll("")).To(BeEmpty())
			})

			It("emits nothing on input with only blank lines", func() {
				Expect(decodeAll("\n\n\n")).To(BeEmpty())
			})

			It("never dispatches an unterminated trailing event", func() {
				Expect(decodeAll("data: unterminated")).To(BeEmpty())
				Expect(decodeAll("data: unterminated\n")).To(BeEmpty())
			})

			It("ignores unknown fields", func() {
				events := decodeAll("foo: bar\ndata: hello\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hello"))
			})

			It("strips a leading byte order mark", func() {
				events := decodeAll("\ufeffdata: hi\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hi"))
			})

			It("reassembles a multi-byte rune split across chunks", func() {
				events := decodeAll("data: caf\xc3", "\xa9\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("café"))
			})

			It("replaces invalid UTF-8", func() {
				events := decodeAll("data: \xff\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("\uFFFD"))
			})
		})

		Context("chunk boundary invariance", func() {
			stream := ": hello\n" +
				"event: run\r\n" +
				"data: {\"type\":\"run_status\",\"content\":{\"status\":\"running\",\"run_id\":\"r1\"}}\r\n\r\n" +
				"data: {\"type\":\"tokens\",\"content\":{\"tokens\":{\"text\":\"héllo\"}}}\n" +
				"data: second line\n\n" +
				"id: 7\rdata: {\"type\":\"final\"}\r\r" +
				"data: trailing"

			It("yields identical events for every two-way split", func() {
				whole := decodeAll(stream)
				Expect(whole).To(HaveLen(3))

				for i := 0; i <= len(stream); i++ {
					Expect(decodeAll(stream[:i], stream[i:])).To(Equal(whole), "split at %d", i)
				}
			})

			It("yields identical events for random multi-way splits", func() {
				whole := decodeAll(stream)
				rng := rand.New(rand.NewPCG(1, 2))

				for range 200 {
					var chunks []string
					rest := stream
					for len(rest) > 0 {
						n := rng.IntN(len(rest)) + 1
						if n > 7 {
							n = n%7 + 1
						}
						chunks = append(chunks, rest[:n])
						rest = rest[n:]
					}
					Expect(decodeAll(chunks...)).To(Equal(whole))
				}
			})

			It("yields identical events when fed one byte at a time", func() {
				whole := decodeAll(stream)
				chunks := make([]string, 0, len(stream))
				for i := range len(stream) {
					chunks = append(chunks, stream[i:i+1])
				}
				Expect(decodeAll(chunks...)).To(Equal(whole))
			})
		})
	})

	Describe("line size limit", func() {
		It("drops an oversized line and keeps decoding after it", func() {
			d := NewDecoder()
			var events []Event
			emit := func(ev Event) { events = append(events, ev) }

			huge := strings.Repeat("x", MaxLineSize/4)
			d.Feed([]byte("data: "), emit)
			for range 5 {
				d.Feed([]byte(huge), emit)
			}
			Expect(len(d.buf)).To(BeNumerically("<=", MaxLineSize))

			d.Feed([]byte("\ndata: after\n\n"), emit)
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("after"))
		})

		It("drops an oversized line delivered in a single chunk", func() {
			d := NewDecoder()
			var events []Event
			emit := func(ev Event) { events = append(events, ev) }

			d.Feed([]byte("data: "+strings.Repeat("y", MaxLineSize+1)+"\ndata: ok\n\n"), emit)
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("ok"))
		})
	})

	Describe("Reset", func() {
		It("drops buffered partial input", func() {
			d := NewDecoder()
			var events []Event
			emit := func(ev Event) { events = append(events, ev) }

			d.Feed([]byte("data: stale"), emit)
			d.Reset()
			d.Feed([]byte("data: fresh\n\n"), emit)

			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("fresh"))
		})
	})
})
