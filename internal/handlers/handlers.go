package handlers

import (
	"github.com/homefleet/inventoryd/internal/services"
)

type Handler struct {
	inventorySrv *services.Inventory
}

func New(inventorySrv *services.Inventory) *Handler {
	return &Handler{
		inventorySrv: inventorySrv,
	}
}
