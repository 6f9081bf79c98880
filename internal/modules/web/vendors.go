package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/georgemunganga/vendora/internal/logging"
	"github.com/georgemunganga/vendora/internal/modules/vendor"
	"github.com/go-chi/chi/v5"
)

const perPage = 10

const requiredFieldsNotice = "Please fill in all required fields"

// Messages shown when a call fails. The first is used when the API answered
// with an error, the second when it could not be reached.
var (
	listFailure   = failure{"Failed to fetch vendors", "An error occurred while fetching vendors", false}
	fetchFailure  = failure{"Failed to fetch vendor details", "An error occurred while fetching vendor details", false}
	createFailure = failure{"Failed to create vendor", "An error occurred while creating the vendor", true}
	updateFailure = failure{"Failed to update vendor", "An error occurred while updating the vendor", true}
	deleteFailure = failure{"Failed to delete vendor", "An error occurred while deleting the vendor", false}
)

type failure struct {
	failed      string
	unreachable string
	// serverMessage shows the API's own message when it sent one.
	serverMessage bool
}

func (f failure) describe(err error) string {
	var apiErr *vendor.APIError
	var validationErr *vendor.ValidationError
	switch {
	case errors.Is(err, vendor.ErrNetwork):
		return f.unreachable
	case errors.As(err, &apiErr):
		if f.serverMessage && apiErr.Message != "" {
			return apiErr.Message
		}
	case errors.As(err, &validationErr):
		if f.serverMessage {
			return validationErr.Error()
		}
	}
	return f.failed
}

type listData struct {
	Vendors    []*vendor.Vendor
	Pagination vendor.Pagination
}

func (d listData) HasPrev() bool { return d.Pagination.Page > 1 }
func (d listData) HasNext() bool { return d.Pagination.Page < d.Pagination.Pages }

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r, "Vendors")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	p, err := h.vendors.ListVendors(r.Context(), page, perPage)
	v.State = v.State.resolve(err)
	if err != nil {
		logging.FromRequest(r).Warn().Err(err).Str(logging.Op, "list").Msg("fetch vendors")
		v.Notice = listFailure.describe(err)
		h.render(w, r, http.StatusOK, "vendors.html", v)
		return
	}
	v.Data = listData{Vendors: p.Vendors, Pagination: p.Pagination}
	h.render(w, r, http.StatusOK, "vendors.html", v)
}

// vendorAction handles the form posts made from the list page.
func (h *Handler) vendorAction(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("_action") != "delete" {
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	back := "/vendors"
	if page, err := strconv.Atoi(r.PostFormValue("page")); err == nil && page > 1 {
		back += "?page=" + strconv.Itoa(page)
	}

	id := r.PostFormValue("id")
	if err := h.vendors.DeleteVendor(r.Context(), id); err != nil {
		logging.FromRequest(r).Warn().Err(err).Str(logging.Op, "delete").Str("id", id).Msg("delete vendor")
		h.setFlash(w, flashError, deleteFailure.describe(err))
	} else {
		h.setFlash(w, flashSuccess, vendor.DeletedMessage)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type formData struct {
	Heading string
	Action  string
	Submit  string
	Input   vendor.Input
	Invalid map[string]bool
}

func newForm() formData {
	return formData{Heading: "Add New Vendor", Action: "/vendors/new", Submit: "Create Vendor"}
}

func editForm(id string) formData {
	return formData{Heading: "Edit Vendor", Action: "/vendors/edit/" + url.PathEscape(id), Submit: "Update Vendor"}
}

func inputFromForm(r *http.Request) vendor.Input {
	return vendor.Input{
		VendorName:    r.PostFormValue("vendorName"),
		BankAccountNo: r.PostFormValue("bankAccountNo"),
		BankName:      r.PostFormValue("bankName"),
		AddressLine1:  r.PostFormValue("addressLine1"),
		AddressLine2:  r.PostFormValue("addressLine2"),
		City:          r.PostFormValue("city"),
		Country:       r.PostFormValue("country"),
		ZipCode:       r.PostFormValue("zipCode"),
	}
}

// checkForm validates in the same way the API does and marks the offending
// fields on form.
func checkForm(form *formData) bool {
	err := form.Input.Validate()
	if err == nil {
		return true
	}
	form.Invalid = make(map[string]bool)
	var verr *vendor.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			form.Invalid[f.Field] = true
		}
	}
	return false
}

func (h *Handler) newVendor(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r, "Add Vendor")
	v.State = v.State.resolve(nil)
	form := newForm()
	v.Data = &form
	h.render(w, r, http.StatusOK, "form.html", v)
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r, "Add Vendor")
	v.State = v.State.resolve(nil)
	form := newForm()
	form.Input = inputFromForm(r)
	v.Data = &form

	if !checkForm(&form) {
		v.Notice = requiredFieldsNotice
		h.render(w, r, http.StatusUnprocessableEntity, "form.html", v)
		return
	}

	if _, err := h.vendors.CreateVendor(r.Context(), form.Input); err != nil {
		logging.FromRequest(r).Warn().Err(err).Str(logging.Op, "create").Msg("create vendor")
		v.Notice = createFailure.describe(err)
		h.render(w, r, http.StatusOK, "form.html", v)
		return
	}
	h.setFlash(w, flashSuccess, "Vendor created successfully")
	http.Redirect(w, r, "/vendors", http.StatusSeeOther)
}

func (h *Handler) editVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v := h.newView(w, r, "Edit Vendor")

	found, err := h.vendors.GetVendor(r.Context(), id)
	v.State = v.State.resolve(err)
	if v.State.Failed() {
		logging.FromRequest(r).Warn().Err(err).Str(logging.Op, "get").Str("id", id).Msg("fetch vendor")
		h.setFlash(w, flashError, fetchFailure.describe(err))
		http.Redirect(w, r, "/vendors", http.StatusSeeOther)
		return
	}

	form := editForm(id)
	form.Input = found.Input()
	v.Data = &form
	h.render(w, r, http.StatusOK, "form.html", v)
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v := h.newView(w, r, "Edit Vendor")
	v.State = v.State.resolve(nil)
	form := editForm(id)
	form.Input = inputFromForm(r)
	v.Data = &form

	if !checkForm(&form) {
		v.Notice = requiredFieldsNotice
		h.render(w, r, http.StatusUnprocessableEntity, "form.html", v)
		return
	}

	if _, err := h.vendors.UpdateVendor(r.Context(), id, form.Input); err != nil {
		logging.FromRequest(r).Warn().Err(err).Str(logging.Op, "update").Str("id", id).Msg("update vendor")
		v.Notice = updateFailure.describe(err)
		h.render(w, r, http.StatusOK, "form.html", v)
		return
	}
	h.setFlash(w, flashSuccess, "Vendor updated successfully")
	http.Redirect(w, r, "/vendors", http.StatusSeeOther)
}

type fieldView struct {
	Name     string
	Label    string
	Value    string
	Required bool
	Invalid  bool
}

// Field describes one input of the vendor form.
func (f *formData) Field(name, label string, required bool) fieldView {
	values := map[string]string{
		"vendorName":    f.Input.VendorName,
		"bankAccountNo": f.Input.BankAccountNo,
		"bankName":      f.Input.BankName,
		"addressLine1":  f.Input.AddressLine1,
		"addressLine2":  f.Input.AddressLine2,
		"city":          f.Input.City,
		"country":       f.Input.Country,
		"zipCode":       f.Input.ZipCode,
	}
	return fieldView{
		Name:     name,
		Label:    label,
		Value:    values[name],
		Required: required,
		Invalid:  f.Invalid[name],
	}
}
