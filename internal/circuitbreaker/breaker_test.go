package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/circuitbreaker"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("Breaker", func() {
	var (
		clock *fakeClock
		b     *circuitbreaker.Breaker
	)

	BeforeEach(func() {
		clock = &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
		b = circuitbreaker.NewRegistry(3, time.Minute).WithClock(clock.Now).Get("a")
	})

	trip := func() {
		for range 3 {
			b.RecordFailure()
		}
		Expect(b.State()).To(Equal(circuitbreaker.StateOpen))
	}

	Context("when closed", func() {
		It("should allow probes", func() {
			Expect(b.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(b.Allow()).To(BeTrue())
		})

		It("should stay closed below the threshold", func() {
			b.RecordFailure()
			b.RecordFailure()
			Expect(b.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should reset the count on success", func() {
			b.RecordFailure()
			b.RecordFailure()
			b.RecordSuccess()
			b.RecordFailure()
			Expect(b.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Context("when open", func() {
		BeforeEach(trip)

		It("should block until the cooldown passes", func() {
			clock.Advance(30 * time.Second)
			Expect(b.Allow()).To(BeFalse())
			Expect(b.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should admit exactly one trial after the cooldown", func() {
			clock.Advance(time.Minute)
			Expect(b.Allow()).To(BeTrue())
			Expect(b.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(b.Allow()).To(BeFalse())
		})
	})

	Context("when half-open", func() {
		BeforeEach(func() {
			trip()
			clock.Advance(time.Minute)
			Expect(b.Allow()).To(BeTrue())
		})

		It("should close on success", func() {
			b.RecordSuccess()
			Expect(b.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(b.Allow()).To(BeTrue())
		})

		It("should reopen on failure and restart the cooldown", func() {
			b.RecordFailure()
			Expect(b.State()).To(Equal(circuitbreaker.StateOpen))

			clock.Advance(59 * time.Second)
			Expect(b.Allow()).To(BeFalse())
		})
	})

	It("should render states as lower-case text", func() {
		Expect(circuitbreaker.StateClosed.String()).To(Equal("closed"))
		Expect(circuitbreaker.StateOpen.String()).To(Equal("open"))
		Expect(circuitbreaker.StateHalfOpen.String()).To(Equal("half-open"))
	})
})
