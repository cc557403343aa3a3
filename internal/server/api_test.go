package server_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homefleet/inventoryd/internal/config"
	"github.com/homefleet/inventoryd/internal/handlers"
	"github.com/homefleet/inventoryd/internal/server"
	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/internal/store"
	apiclient "github.com/homefleet/inventoryd/pkg/client"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

func discoveryFor(hostname, ip string) []byte {
	return fmt.Appendf(nil, `{
		"status": "success",
		"hostname": %q,
		"connection_ip": %q,
		"data": {
			"cpu": {"model": "Cortex-A76", "cores": 4},
			"memory": {"total": "8G"},
			"disk": {"use_percent": "37%%", "size": "64G"},
			"os": "Raspberry Pi OS 12"
		}
	}`, hostname, ip)
}

var _ = Describe("API", func() {
	var (
		ctx       context.Context
		adapter   *store.Embedded
		pool      *scheduler.Pool
		ts        *httptest.Server
		apiClient *apiclient.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		adapter = store.NewEmbedded(":memory:")
		Expect(adapter.InitSchema(ctx)).To(Succeed())
		pool = scheduler.NewPool(3)

		handler := handlers.New(services.NewInventory(adapter, pool))
		router := server.NewRouter(&config.Configuration{
			Service: config.Service{Mode: config.ModeProd},
		}, func(r *gin.RouterGroup) {
			r.GET("/devices", handler.GetDevices)
			r.GET("/devices/:id/history", handler.GetDeviceHistory)
			r.POST("/devices/:id/decommission", handler.DecommissionDevice)
			r.POST("/devices/:id/reactivate", handler.ReactivateDevice)
			r.POST("/discoveries", handler.PostDiscoveries)
			r.GET("/topology", handler.GetTopology)
			r.GET("/recommendations", handler.GetRecommendations)
		})
		ts = httptest.NewServer(router)
		apiClient = apiclient.NewClient(ts.URL)
	})

	AfterEach(func() {
		ts.Close()
		pool.Close()
		Expect(adapter.Close()).To(Succeed())
	})

	Context("health", func() {
		It("should report ok", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Context("discovery ingestion", func() {
		// Given a batch of two discovery documents
		// When it is posted
		// Then both results come back stored, in input order
		It("should ingest a batch and list the devices", func() {
			batch, err := apiClient.PostDiscoveries(ctx, [][]byte{
				discoveryFor("pi-a", "192.168.1.10"),
				discoveryFor("pi-b", "192.168.1.11"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.Failed).To(BeZero())
			Expect(batch.Results).To(HaveLen(2))
			Expect(batch.Results[0].Hostname).To(Equal("pi-a"))
			Expect(batch.Results[1].Hostname).To(Equal("pi-b"))
			Expect(batch.Results[0].Stored).To(BeTrue())

			list, err := apiClient.ListDevices(ctx, apiclient.ListParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(2))
			Expect(list.Devices[0].Hostname).To(Equal("pi-a"))
		})

		// Given the same document posted twice
		// When the history is fetched
		// Then only one event exists and the repeat reports stored=false
		It("should suppress consecutive duplicate history entries", func() {
			first, err := apiClient.PostDiscoveries(ctx, [][]byte{discoveryFor("pi-a", "192.168.1.10")})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Results[0].Stored).To(BeTrue())

			second, err := apiClient.PostDiscoveries(ctx, [][]byte{discoveryFor("pi-a", "192.168.1.10")})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Results[0].Stored).To(BeFalse())

			history, err := apiClient.GetHistory(ctx, first.Results[0].DeviceID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Events).To(HaveLen(1))
		})

		It("should reject an empty batch", func() {
			_, err := apiClient.PostDiscoveries(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("device filters", func() {
		BeforeEach(func() {
			_, err := apiClient.PostDiscoveries(ctx, [][]byte{
				discoveryFor("pi-a", "192.168.1.10"),
				discoveryFor("lab-b", "10.0.0.5"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should filter by network segment", func() {
			list, err := apiClient.ListDevices(ctx, apiclient.ListParams{Segment: "192.168.1."})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(1))
			Expect(list.Devices[0].Hostname).To(Equal("pi-a"))
		})

		It("should filter by status", func() {
			list, err := apiClient.ListDevices(ctx, apiclient.ListParams{Status: "error"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(BeZero())
		})
	})

	Context("lifecycle", func() {
		// Given a recorded device
		// When it is decommissioned and rediscovered
		// Then it stays decommissioned until an explicit reactivation
		It("should keep a decommissioned device retired across rediscovery", func() {
			batch, err := apiClient.PostDiscoveries(ctx, [][]byte{discoveryFor("pi-a", "192.168.1.10")})
			Expect(err).NotTo(HaveOccurred())
			deviceID := batch.Results[0].DeviceID

			Expect(apiClient.Decommission(ctx, deviceID)).To(Succeed())

			_, err = apiClient.PostDiscoveries(ctx, [][]byte{discoveryFor("pi-a", "192.168.1.10")})
			Expect(err).NotTo(HaveOccurred())

			list, err := apiClient.ListDevices(ctx, apiclient.ListParams{Status: "decommissioned"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(1))

			Expect(apiClient.Reactivate(ctx, deviceID)).To(Succeed())

			list, err = apiClient.ListDevices(ctx, apiclient.ListParams{Status: "success"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(1))
		})

		It("should return bad request for a malformed device id", func() {
			resp, err := http.Post(ts.URL+"/api/v1/devices/not-a-uuid/decommission", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Context("analytics", func() {
		BeforeEach(func() {
			_, err := apiClient.PostDiscoveries(ctx, [][]byte{
				discoveryFor("pi-a", "192.168.1.10"),
				discoveryFor("pi-b", "192.168.1.11"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should summarize the fleet topology", func() {
			topo, err := apiClient.GetTopology(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(topo.TotalDevices).To(Equal(2))
			Expect(topo.OnlineDevices).To(Equal(2))
			Expect(topo.NetworkSegments).To(HaveKeyWithValue("192.168.1.0/24", 2))
		})

		It("should return placement suggestions for online devices", func() {
			sugg, err := apiClient.GetRecommendations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sugg.MonitoringTargets).NotTo(BeEmpty())
		})
	})
})

var _ = Describe("Router", func() {
	It("should 404 unknown API routes", func() {
		router := server.NewRouter(&config.Configuration{
			Service: config.Service{Mode: config.ModeProd},
		}, func(r *gin.RouterGroup) {})
		ts := httptest.NewServer(router)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/v1/nope")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
