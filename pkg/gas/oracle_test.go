package gas_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/gas"
)

var _ = Describe("GasStationOracle", func() {
	var (
		server *httptest.Server
		logger *logrus.Logger
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	})

	It("converts deci-gwei prices into gwei", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/json/ethgasAPI.json"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"fastest": 500, "fast": 300, "average": 100, "fastWait": 0.5, "avgWait": 2}`))
		}))

		oracle := gas.NewGasStationOracle(server.URL, logger)
		prices, err := oracle.FetchPrices(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(prices.Fast.String()).To(Equal("30"))
		Expect(prices.Average.String()).To(Equal("10"))

		table := gas.Normalize(prices)
		Expect(table.Fast.Gwei.String()).To(Equal("30"))
		Expect(table.Normal.Gwei.String()).To(Equal("10"))
		Expect(table.Slow.Gwei.String()).To(Equal("10"))
	})

	It("rejects malformed payloads", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"fast": 0}`))
		}))

		oracle := gas.NewGasStationOracle(server.URL, logger)
		_, err := oracle.FetchPrices(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("surfaces provider error responses", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))

		oracle := gas.NewGasStationOracle(server.URL, logger)
		_, err := oracle.FetchPrices(context.Background())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GasNowOracle", func() {
	It("reads plain-gwei prices", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/v3/gas/price"))
			_, _ = w.Write([]byte(`{"fast": 42, "average": 18, "safeLow": 6, "fastWait": 0.5, "avgWait": 3, "safeLowWait": 12}`))
		}))
		defer server.Close()

		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)

		oracle := gas.NewGasNowOracle(server.URL, logger)
		prices, err := oracle.FetchPrices(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(prices.Fast.String()).To(Equal("42"))
		Expect(prices.SafeLow.String()).To(Equal("6"))
	})
})
