package httpapi

import (
	"context"
	"net/http"

	"github.com/mmynk/homestock/internal/apperr"
	"github.com/mmynk/homestock/internal/inventory"
	"github.com/mmynk/homestock/internal/middleware"
	"github.com/mmynk/homestock/internal/models"
)

const msgSessionEnded = "Your session has ended. Please log in again."

// operations returns the service of the device session that issued the
// token. The token is only honoured while that session is still
// authenticated as the token's user in the token's family.
func (s *Server) operations(ctx context.Context) (*inventory.Operations, error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil || claims.DeviceID == "" {
		return nil, apperr.New(apperr.InvalidFamilyContext, msgSessionEnded)
	}
	d, ok := s.registry.Lookup(claims.DeviceID)
	if !ok {
		return nil, apperr.New(apperr.InvalidFamilyContext, msgSessionEnded)
	}
	ops := d.Session.ItemsFor(claims.UserID, claims.FamilyID)
	if ops == nil {
		return nil, apperr.New(apperr.InvalidFamilyContext, msgSessionEnded)
	}
	return ops, nil
}

type listResponse struct {
	Items  []models.Item    `json:"items"`
	Counts inventory.Counts `json:"counts"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := ops.FetchItemsWithRetry(r.Context(), s.fetchRetries)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	writeJSON(w, http.StatusOK, listResponse{
		Items:  inventory.Filter(items, q.Get("q"), inventory.ParseFilter(q.Get("filter"))),
		Counts: inventory.Count(items),
	})
}

func (s *Server) scanBarcode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if err := models.ValidateVar(req.Barcode, "required"); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidInput, "A barcode is required.", err))
		return
	}

	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	current, err := ops.FetchItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := ops.ProcessBarcodeSubmit(r.Context(), req.Barcode, current)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var details models.ItemDetails
	if err := decode(r, &details, false); err != nil {
		writeError(w, err)
		return
	}
	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := ops.AddNewItem(r.Context(), details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var details models.ItemDetails
	if err := decode(r, &details, false); err != nil {
		writeError(w, err)
		return
	}

	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := s.findItem(r.Context(), ops, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := ops.UpdateItem(r.Context(), existing, details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) increaseItem(w http.ResponseWriter, r *http.Request) {
	s.adjustStock(w, r, (*inventory.Operations).IncreaseItemStock)
}

func (s *Server) decreaseItem(w http.ResponseWriter, r *http.Request) {
	s.adjustStock(w, r, (*inventory.Operations).DecreaseItemStock)
}

// adjustStock applies fn to the item snapshot in the body, or to the stored
// item when the body is empty.
func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request, fn func(*inventory.Operations, context.Context, models.Item) (models.Item, error)) {
	id := r.PathValue("id")
	var snapshot models.Item
	if err := decode(r, &snapshot, true); err != nil {
		writeError(w, err)
		return
	}

	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if snapshot.ID == "" {
		stored, err := s.findItem(r.Context(), ops, id)
		if err != nil {
			writeError(w, err)
			return
		}
		snapshot = stored
	} else if snapshot.ID != id {
		writeError(w, apperr.New(apperr.InvalidInput, "Item id does not match the path."))
		return
	}

	item, err := fn(ops, r.Context(), snapshot)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	ops, err := s.operations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ops.RemoveItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) findItem(ctx context.Context, ops *inventory.Operations, id string) (models.Item, error) {
	items, err := ops.FetchItems(ctx)
	if err != nil {
		return models.Item{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.Item{}, apperr.New(apperr.ItemNotFound, "Item not found.")
}
