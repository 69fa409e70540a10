package eventstream_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/runevent"
)

var _ = Describe("Event", func() {
	var (
		now    = time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
		source = eventstream.EventSource{Target: "copilot", ID: "cop_1", Version: "3"}
	)

	It("wraps a run event with expected top-level keys", func() {
		env, err := eventstream.NewRunEventEnvelope(source, "r1", &runevent.Tokens{
			BlockName: "MODEL",
			Tokens:    runevent.TokenChunk{Text: "hi"},
		}, now)
		Expect(err).NotTo(HaveOccurred())

		payload, err := json.Marshal(env)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKeyWithValue("run_id", "r1"))
		Expect(got).To(HaveKeyWithValue("kind", "tokens"))
		Expect(got).To(HaveKey("payload"))
	})

	It("fills in identity and time", func() {
		env, err := eventstream.NewRunEventEnvelope(source, "", &runevent.Final{}, now)
		Expect(err).NotTo(HaveOccurred())

		_, err = uuid.Parse(env.EventID)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.EmittedAt.Location()).To(Equal(time.UTC))
		Expect(env.EmittedAt.Equal(now)).To(BeTrue())
		Expect(string(env.Payload)).To(Equal(`{"type":"final"}`))
	})

	It("keys by run id and falls back to the source id", func() {
		withRun, err := eventstream.NewRunEventEnvelope(source, "r1", &runevent.Final{}, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(withRun.Key()).To(Equal("r1"))

		withoutRun, err := eventstream.NewRunEventEnvelope(source, "", &runevent.Final{}, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(withoutRun.Key()).To(Equal("cop_1"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRunEvent).To(Equal("cortex.run.event"))
	})

	It("provides ErrNilRunEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilRunEvent).To(MatchError("nil run event"))
	})
})
