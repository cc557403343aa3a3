package services_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/internal/store"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

func payloadFor(hostname, ip string) []byte {
	return fmt.Appendf(nil, `{
		"status": "success",
		"hostname": %q,
		"connection_ip": %q,
		"data": {
			"cpu": {"model": "Intel N100", "cores": 4},
			"memory": {"total": "16G"},
			"os": "Debian GNU/Linux 12"
		}
	}`, hostname, ip)
}

// faultyAdapter delegates to a real embedded adapter but refuses writes
// for one hostname, standing in for an unreachable storage round trip.
type faultyAdapter struct {
	store.Adapter
	failHostname string
}

func (f *faultyAdapter) UpsertDevice(ctx context.Context, device *models.Device) (uuid.UUID, error) {
	if device.Hostname == f.failHostname {
		return uuid.Nil, errors.New("backend unreachable")
	}
	return f.Adapter.UpsertDevice(ctx, device)
}

var _ = Describe("Inventory", func() {
	var (
		ctx     context.Context
		adapter *store.Embedded
		pool    *scheduler.Pool
		inv     *services.Inventory
	)

	BeforeEach(func() {
		ctx = context.Background()
		adapter = store.NewEmbedded(":memory:")
		Expect(adapter.InitSchema(ctx)).To(Succeed())
		pool = scheduler.NewPool(3)
		inv = services.NewInventory(adapter, pool)
	})

	AfterEach(func() {
		pool.Close()
		Expect(adapter.Close()).To(Succeed())
	})

	Context("Upsert", func() {
		// Given the same identity discovered twice
		// When both payloads are upserted
		// Then one device row exists and the id is stable
		It("should be idempotent per natural key", func() {
			first, err := inv.Upsert(ctx, payloadFor("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())

			second, err := inv.Upsert(ctx, payloadFor("nas01", "192.168.1.42"))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.DeviceID).To(Equal(first.DeviceID))

			devices, err := inv.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
		})

		It("should suppress a consecutive duplicate history event", func() {
			raw := payloadFor("nas01", "192.168.1.42")

			first, err := inv.Upsert(ctx, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Stored).To(BeTrue())

			second, err := inv.Upsert(ctx, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Stored).To(BeFalse())

			events, err := inv.GetHistory(ctx, first.DeviceID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("should record an error payload as an error device", func() {
			res, err := inv.Upsert(ctx, []byte(`{"status":"error","hostname":"pve02","connection_ip":"10.0.0.7"}`))
			Expect(err).NotTo(HaveOccurred())

			devices, err := inv.ListDevices(ctx, store.ByStatus(models.DeviceStatusError))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].ID).To(Equal(res.DeviceID))
			Expect(*devices[0].ErrorMessage).To(Equal("Unknown error"))
		})

		It("should never fail on malformed payloads", func() {
			res, err := inv.Upsert(ctx, []byte("garbage"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hostname).To(Equal("unknown"))

			devices, err := inv.ListDevices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].Status).To(Equal(models.DeviceStatusError))
		})
	})

	Context("BulkUpsert", func() {
		It("should return results in input order", func() {
			payloads := [][]byte{
				payloadFor("alpha", "192.168.1.1"),
				payloadFor("bravo", "192.168.1.2"),
				payloadFor("charlie", "192.168.1.3"),
			}

			results := inv.BulkUpsert(ctx, payloads)

			Expect(results).To(HaveLen(3))
			Expect(results[0].Hostname).To(Equal("alpha"))
			Expect(results[1].Hostname).To(Equal("bravo"))
			Expect(results[2].Hostname).To(Equal("charlie"))
			for _, r := range results {
				Expect(r.Failed()).To(BeFalse())
			}
		})

		// Given three targets where the middle one cannot be stored
		// When the batch runs
		// Then the middle slot is failed and the others succeed
		It("should capture per-item failures without aborting the batch", func() {
			faulty := &faultyAdapter{Adapter: adapter, failHostname: "bravo"}
			faultyInv := services.NewInventory(faulty, pool)

			results := faultyInv.BulkUpsert(ctx, [][]byte{
				payloadFor("alpha", "192.168.1.1"),
				payloadFor("bravo", "192.168.1.2"),
				payloadFor("charlie", "192.168.1.3"),
			})

			Expect(results).To(HaveLen(3))
			Expect(results[0].Failed()).To(BeFalse())
			Expect(results[1].Failed()).To(BeTrue())
			Expect(results[1].Hostname).To(Equal("bravo"))
			Expect(results[1].ConnectionIP).To(Equal("192.168.1.2"))
			Expect(results[1].Error).To(ContainSubstring("bravo"))
			Expect(results[2].Failed()).To(BeFalse())
		})

		// Given an already-cancelled context
		// When the batch runs
		// Then every slot is failed but still names the target it was for
		It("should mark undispatched items cancelled when the context is done", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			results := inv.BulkUpsert(cancelled, [][]byte{
				payloadFor("alpha", "192.168.1.1"),
				payloadFor("bravo", "192.168.1.2"),
			})

			Expect(results).To(HaveLen(2))
			Expect(results[0].Hostname).To(Equal("alpha"))
			Expect(results[0].ConnectionIP).To(Equal("192.168.1.1"))
			Expect(results[1].Hostname).To(Equal("bravo"))
			for _, r := range results {
				Expect(r.Failed()).To(BeTrue())
				Expect(r.Error).To(Equal(context.Canceled.Error()))
			}
		})
	})

	Context("Decommission", func() {
		It("should keep a decommissioned device offline across rediscovery", func() {
			res, err := inv.Upsert(ctx, payloadFor("retired", "192.168.1.99"))
			Expect(err).NotTo(HaveOccurred())

			Expect(inv.Decommission(ctx, res.DeviceID)).To(Succeed())

			_, err = inv.Upsert(ctx, payloadFor("retired", "192.168.1.99"))
			Expect(err).NotTo(HaveOccurred())

			devices, err := inv.ListDevices(ctx, store.ByHostname("retired"))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices[0].Status).To(Equal(models.DeviceStatusDecommissioned))

			Expect(inv.Reactivate(ctx, res.DeviceID)).To(Succeed())
			devices, err = inv.ListDevices(ctx, store.ByHostname("retired"))
			Expect(err).NotTo(HaveOccurred())
			Expect(devices[0].Status).To(Equal(models.DeviceStatusSuccess))
		})
	})
})
