package store_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/store"
	"github.com/homefleet/inventoryd/internal/util"
)

func successDevice(hostname, ip string) *models.Device {
	now := time.Now().UTC()
	return &models.Device{
		Hostname:        hostname,
		ConnectionIP:    ip,
		Status:          models.DeviceStatusSuccess,
		LastSeen:        &now,
		CPUModel:        util.StrPtr("Intel N100"),
		CPUCores:        util.IntPtr(4),
		MemoryTotal:     util.StrPtr("16G"),
		MemoryUsed:      util.StrPtr("4.2G"),
		DiskUsePercent:  util.StrPtr("27%"),
		DiskMount:       util.StrPtr("/"),
		OSInfo:          util.StrPtr("Debian GNU/Linux 12"),
		MemoryAvailable: util.StrPtr("11G"),
		NetworkInterfaces: []models.NetworkInterface{
			{Name: "eth0", State: "UP", Addresses: []string{ip + "/24"}},
		},
	}
}

var _ = Describe("Embedded", func() {
	var (
		ctx context.Context
		s   *store.Embedded
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = store.NewEmbedded(":memory:")
		Expect(s.InitSchema(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if s != nil {
			Expect(s.Close()).To(Succeed())
		}
	})

	Context("InitSchema", func() {
		// Given an initialized schema
		// When InitSchema runs again
		// Then it succeeds without clobbering existing data
		It("should be idempotent", func() {
			_, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.InitSchema(ctx)).To(Succeed())

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
		})
	})

	Context("UpsertDevice", func() {
		// Given a device already stored
		// When the same identity is upserted again
		// Then the same id comes back and exactly one row exists
		It("should be idempotent by natural key", func() {
			first, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			second, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
		})

		It("should store distinct rows for distinct identities", func() {
			_, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())
			_, err = s.UpsertDevice(ctx, successDevice("nas01", "10.0.0.42"))
			Expect(err).NotTo(HaveOccurred())

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(2))
		})

		// Given an existing device
		// When it is upserted with new hardware values
		// Then fields update, created_at stays, updated_at advances
		It("should update in place and keep created_at immutable", func() {
			_, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			before, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())

			updated := successDevice("nas01", "192.168.1.42")
			updated.MemoryUsed = util.StrPtr("9.9G")
			_, err = s.UpsertDevice(ctx, updated)
			Expect(err).NotTo(HaveOccurred())

			after, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(HaveLen(1))
			Expect(*after[0].MemoryUsed).To(Equal("9.9G"))
			Expect(after[0].CreatedAt).To(BeTemporally("==", before[0].CreatedAt))
			Expect(after[0].UpdatedAt).To(BeTemporally(">=", before[0].UpdatedAt))
		})

		It("should store error records with no hardware snapshot", func() {
			now := time.Now().UTC()
			_, err := s.UpsertDevice(ctx, &models.Device{
				Hostname:     "pve02",
				ConnectionIP: "10.0.0.7",
				Status:       models.DeviceStatusError,
				LastSeen:     &now,
				ErrorMessage: util.StrPtr("connection refused"),
			})
			Expect(err).NotTo(HaveOccurred())

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Status).To(Equal(models.DeviceStatusError))
			Expect(devices[0].CPUModel).To(BeNil())
			Expect(devices[0].MemoryTotal).To(BeNil())
			Expect(devices[0].ErrorMessage).NotTo(BeNil())
			Expect(*devices[0].ErrorMessage).To(Equal("connection refused"))
		})

		// Given a decommissioned device
		// When a discovery upserts the same identity
		// Then the terminal status is preserved while hardware refreshes
		It("should not resurrect a decommissioned device", func() {
			id, err := s.UpsertDevice(ctx, successDevice("retired", "192.168.1.99"))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetDeviceStatus(ctx, id, models.DeviceStatusDecommissioned)).To(Succeed())

			refreshed := successDevice("retired", "192.168.1.99")
			refreshed.MemoryUsed = util.StrPtr("1G")
			_, err = s.UpsertDevice(ctx, refreshed)
			Expect(err).NotTo(HaveOccurred())

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices[0].Status).To(Equal(models.DeviceStatusDecommissioned))
			Expect(*devices[0].MemoryUsed).To(Equal("1G"))
		})

		It("should reactivate only through an explicit status change", func() {
			id, err := s.UpsertDevice(ctx, successDevice("retired", "192.168.1.99"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetDeviceStatus(ctx, id, models.DeviceStatusDecommissioned)).To(Succeed())

			Expect(s.SetDeviceStatus(ctx, id, models.DeviceStatusSuccess)).To(Succeed())

			devices, err := s.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices[0].Status).To(Equal(models.DeviceStatusSuccess))
		})
	})

	Context("ListDevices options", func() {
		BeforeEach(func() {
			_, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())
			_, err = s.UpsertDevice(ctx, successDevice("pve01", "192.168.1.50"))
			Expect(err).NotTo(HaveOccurred())

			now := time.Now().UTC()
			_, err = s.UpsertDevice(ctx, &models.Device{
				Hostname:     "down-box",
				ConnectionIP: "10.0.0.7",
				Status:       models.DeviceStatusError,
				LastSeen:     &now,
				ErrorMessage: util.StrPtr("timeout"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should filter by status", func() {
			devices, err := s.ListDevices(ctx, store.ByStatus(models.DeviceStatusError))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Hostname).To(Equal("down-box"))
		})

		It("should filter by segment prefix", func() {
			devices, err := s.ListDevices(ctx, store.BySegment("192.168.1."))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(2))
		})

		It("should page results", func() {
			devices, err := s.ListDevices(ctx, store.WithLimit(1), store.WithOffset(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
		})
	})

	Context("AppendHistory", func() {
		var payload []byte

		BeforeEach(func() {
			payload = []byte(`{"status":"success","hostname":"nas01","connection_ip":"192.168.1.42"}`)
		})

		// Given a stored event
		// When the identical payload is appended again
		// Then it is suppressed as a consecutive duplicate
		It("should suppress consecutive duplicates only", func() {
			id, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			stored, err := s.AppendHistory(ctx, id, payload, store.ContentHash(payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTrue())

			stored, err = s.AppendHistory(ctx, id, payload, store.ContentHash(payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeFalse())

			other := []byte(`{"status":"success","hostname":"nas01","connection_ip":"192.168.1.42","data":{"uptime":"up 1 day"}}`)
			stored, err = s.AppendHistory(ctx, id, other, store.ContentHash(other))
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTrue())

			events, err := s.GetHistory(ctx, id, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
		})

		// The dedup window is the single most recent event: a payload that
		// reverts to an earlier value is stored again.
		It("should store a payload that reverts to an older value", func() {
			id, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			other := []byte(`{"status":"error","hostname":"nas01","connection_ip":"192.168.1.42"}`)

			for _, p := range [][]byte{payload, other, payload} {
				stored, err := s.AppendHistory(ctx, id, p, store.ContentHash(p))
				Expect(err).NotTo(HaveOccurred())
				Expect(stored).To(BeTrue())
			}

			events, err := s.GetHistory(ctx, id, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
		})

		It("should return events most recent first", func() {
			id, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			first := []byte(`{"seq":1}`)
			second := []byte(`{"seq":2}`)
			_, err = s.AppendHistory(ctx, id, first, store.ContentHash(first))
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(2 * time.Millisecond)
			_, err = s.AppendHistory(ctx, id, second, store.ContentHash(second))
			Expect(err).NotTo(HaveOccurred())

			events, err := s.GetHistory(ctx, id, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))

			var head map[string]int
			Expect(json.Unmarshal(events[0].Data, &head)).To(Succeed())
			Expect(head["seq"]).To(Equal(2))
		})

		It("should wrap a malformed payload under the sentinel key", func() {
			id, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			raw := []byte("plain text output")
			stored, err := s.AppendHistory(ctx, id, raw, store.ContentHash(raw))
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTrue())

			events, err := s.GetHistory(ctx, id, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))

			var doc map[string]string
			Expect(json.Unmarshal(events[0].Data, &doc)).To(Succeed())
			Expect(doc).To(HaveKeyWithValue("raw_text", "plain text output"))
		})
	})

	Context("RawQuery", func() {
		It("should return rows as column maps", func() {
			_, err := s.UpsertDevice(ctx, successDevice("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			rows, err := s.RawQuery(ctx, "SELECT hostname, status FROM devices")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveKeyWithValue("hostname", "nas01"))
			Expect(rows[0]).To(HaveKeyWithValue("status", "success"))
		})
	})
})
