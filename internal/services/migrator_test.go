package services_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/internal/store"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

var _ = Describe("Migrator", func() {
	var (
		ctx      context.Context
		source   *store.Embedded
		target   *store.Embedded
		pool     *scheduler.Pool
		inv      *services.Inventory
		migrator *services.Migrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = store.NewEmbedded(":memory:")
		Expect(source.InitSchema(ctx)).To(Succeed())
		target = store.NewEmbedded(":memory:")
		Expect(target.InitSchema(ctx)).To(Succeed())

		pool = scheduler.NewPool(2)
		inv = services.NewInventory(source, pool)
		migrator = services.NewMigrator()

		for _, p := range [][]byte{
			payloadFor("nas01", "192.168.1.42"),
			payloadFor("pve01", "192.168.1.50"),
			[]byte(`{"status":"error","hostname":"down-box","connection_ip":"10.0.0.7","error":"timeout"}`),
		} {
			_, err := inv.Upsert(ctx, p)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	AfterEach(func() {
		pool.Close()
		Expect(source.Close()).To(Succeed())
		Expect(target.Close()).To(Succeed())
	})

	It("should copy every device and its history", func() {
		migrated, failed, err := migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrated).To(Equal(3))
		Expect(failed).To(BeZero())

		srcDevices, err := source.ListDevices(ctx)
		Expect(err).NotTo(HaveOccurred())
		tgtDevices, err := target.ListDevices(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tgtDevices).To(HaveLen(len(srcDevices)))

		for i := range srcDevices {
			srcEvents, err := source.GetHistory(ctx, srcDevices[i].ID, 100)
			Expect(err).NotTo(HaveOccurred())
			tgtEvents, err := target.GetHistory(ctx, tgtDevices[i].ID, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(tgtEvents).To(HaveLen(len(srcEvents)))
		}
	})

	// Re-running against an already-populated target must not duplicate
	// devices; upsert-by-natural-key is the recovery mechanism.
	It("should be idempotent when run twice", func() {
		_, _, err := migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())

		srcDevices, err := source.ListDevices(ctx)
		Expect(err).NotTo(HaveOccurred())
		tgtDevices, err := target.ListDevices(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tgtDevices).To(HaveLen(len(srcDevices)))

		ok, mismatches, err := migrator.Verify(ctx, source, target, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(mismatches).To(BeEmpty())
		Expect(ok).To(BeTrue())
	})

	It("should verify successfully after a single run", func() {
		_, _, err := migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())

		ok, mismatches, err := migrator.Verify(ctx, source, target, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(mismatches).To(BeEmpty())
		Expect(ok).To(BeTrue())
	})

	It("should fail verification on a count mismatch", func() {
		_, _, err := migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())

		_, err = inv.Upsert(ctx, payloadFor("straggler", "192.168.1.77"))
		Expect(err).NotTo(HaveOccurred())

		ok, mismatches, err := migrator.Verify(ctx, source, target, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(mismatches).NotTo(BeEmpty())
	})

	It("should carry the decommissioned state across backends", func() {
		devices, err := source.ListDevices(ctx, store.ByHostname("nas01"))
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Decommission(ctx, devices[0].ID)).To(Succeed())

		_, _, err = migrator.Migrate(ctx, source, target)
		Expect(err).NotTo(HaveOccurred())

		migrated, err := target.ListDevices(ctx, store.ByHostname("nas01"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(migrated[0].Status)).To(Equal("decommissioned"))
	})
})
