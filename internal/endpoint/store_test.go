package endpoint_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

var _ = Describe("Store", func() {
	Describe("Parse", func() {
		It("should preserve declaration order", func() {
			s, err := endpoint.Parse([]byte(`{
  "zeta":  {"base_url": "https://z.example.com", "secret": "z"},
  "alpha": {"base_url": "https://a.example.com", "secret": "a"},
  "mid":   {"base_url": "https://m.example.com", "secret": "m"}
}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Names()).To(Equal([]string{"zeta", "alpha", "mid"}))
		})

		It("should accept the environment variable layout", func() {
			s, err := endpoint.Parse([]byte(`{
  "legacy": {"ANTHROPIC_BASE_URL": "https://l.example.com", "ANTHROPIC_AUTH_TOKEN": "tok"},
  "apikey": {"ANTHROPIC_BASE_URL": "https://k.example.com", "ANTHROPIC_API_KEY": "key"}
}`))
			Expect(err).NotTo(HaveOccurred())

			legacy, err := s.Get("legacy")
			Expect(err).NotTo(HaveOccurred())
			Expect(legacy.BaseURL).To(Equal("https://l.example.com"))
			Expect(legacy.Secret).To(Equal("tok"))

			apikey, err := s.Get("apikey")
			Expect(err).NotTo(HaveOccurred())
			Expect(apikey.Secret).To(Equal("key"))
		})

		It("should treat empty input as an empty store", func() {
			s, err := endpoint.Parse([]byte("  \n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Len()).To(Equal(0))
		})

		DescribeTable("should reject malformed stores",
			func(raw string) {
				_, err := endpoint.Parse([]byte(raw))
				Expect(err).To(MatchError(endpoint.ErrMalformedStore))
			},
			Entry("array", `[{"base_url": "x"}]`),
			Entry("truncated", `{"a": {"base_url": "x"`),
			Entry("non-object value", `{"a": 42}`),
			Entry("duplicate key", `{"a": {"secret": "1"}, "a": {"secret": "2"}}`),
			Entry("trailing data", `{"a": {"secret": "1"}} {}`),
			Entry("non-http base URL", `{"a": {"base_url": "ftp://a.example.com", "secret": "1"}}`),
			Entry("base URL without a host", `{"a": {"base_url": "not a url", "secret": "1"}}`),
			Entry("legacy base URL without a scheme", `{"a": {"ANTHROPIC_BASE_URL": "a.example.com", "ANTHROPIC_AUTH_TOKEN": "1"}}`),
		)

		It("should load endpoints with missing fields as ineligible", func() {
			s, err := endpoint.Parse([]byte(`{"nokey": {"base_url": "https://n.example.com"}, "nourl": {"secret": "sk"}}`))
			Expect(err).NotTo(HaveOccurred())

			for _, name := range []string{"nokey", "nourl"} {
				ep, err := s.Get(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(ep.Eligible()).To(BeFalse())
			}
		})
	})

	Describe("Get", func() {
		It("should report missing endpoints", func() {
			s, err := endpoint.NewStore()
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Get("nope")
			Expect(err).To(MatchError(endpoint.ErrEndpointNotFound))
		})
	})

	Describe("Put and Remove", func() {
		var s *endpoint.Store

		BeforeEach(func() {
			var err error
			s, err = endpoint.NewStore(
				endpoint.Endpoint{Name: "a", BaseURL: "https://a.example.com", Secret: "1"},
				endpoint.Endpoint{Name: "b", BaseURL: "https://b.example.com", Secret: "2"},
				endpoint.Endpoint{Name: "c", BaseURL: "https://c.example.com", Secret: "3"},
			)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should update in place", func() {
			Expect(s.Put(endpoint.Endpoint{Name: "a", BaseURL: "https://new.example.com", Secret: "9"})).To(Succeed())
			Expect(s.Names()).To(Equal([]string{"a", "b", "c"}))

			ep, _ := s.Get("a")
			Expect(ep.BaseURL).To(Equal("https://new.example.com"))
		})

		It("should append new endpoints", func() {
			Expect(s.Put(endpoint.Endpoint{Name: "d"})).To(Succeed())
			Expect(s.Names()).To(Equal([]string{"a", "b", "c", "d"}))
		})

		It("should reject empty names", func() {
			Expect(s.Put(endpoint.Endpoint{})).NotTo(Succeed())
		})

		It("should keep the index consistent after removal", func() {
			Expect(s.Remove("a")).To(Succeed())
			Expect(s.Names()).To(Equal([]string{"b", "c"}))

			ep, err := s.Get("c")
			Expect(err).NotTo(HaveOccurred())
			Expect(ep.Secret).To(Equal("3"))

			Expect(s.Remove("a")).To(MatchError(endpoint.ErrEndpointNotFound))
		})

		It("should reject duplicates at construction", func() {
			_, err := endpoint.NewStore(endpoint.Endpoint{Name: "x"}, endpoint.Endpoint{Name: "x"})
			Expect(err).To(MatchError(endpoint.ErrMalformedStore))
		})

		It("should find endpoints by base URL", func() {
			ep, ok := s.FindByBaseURL("https://b.example.com/")
			Expect(ok).To(BeTrue())
			Expect(ep.Name).To(Equal("b"))

			_, ok = s.FindByBaseURL("")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Save and Load", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should round trip in order", func() {
			s, err := endpoint.NewStore(
				endpoint.Endpoint{Name: "second", BaseURL: "https://s.example.com?a=1&b=2", Secret: "s"},
				endpoint.Endpoint{Name: "first", BaseURL: "https://f.example.com", Secret: "f"},
			)
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(tempDir, "model_config.json")
			Expect(s.Save(path)).To(Succeed())

			loaded, err := endpoint.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Endpoints()).To(Equal(s.Endpoints()))

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("should encode an empty store as an empty object", func() {
			s, _ := endpoint.NewStore()
			data, err := s.Marshal()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("{}\n"))
		})

		It("should replace files atomically with the requested mode", func() {
			path := filepath.Join(tempDir, "nested", "state")
			Expect(endpoint.WriteFileAtomic(path, []byte("one"), 0o644)).To(Succeed())
			Expect(endpoint.WriteFileAtomic(path, []byte("two"), 0o600)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("two"))

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			entries, err := os.ReadDir(filepath.Dir(path))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("should surface missing files as I/O errors", func() {
			_, err := endpoint.Load(filepath.Join(tempDir, "missing.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})
})
