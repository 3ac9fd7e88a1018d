package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	models "storefront/model"
	"storefront/service"
	"storefront/store"
)

// maxImportSize bounds the multipart body of an import.
const maxImportSize = 10 << 20

var exportHeaders = []string{
	"ID", "SKU", "Title", "Brand", "Category", "Subcategory",
	"Price", "Stock", "Status", "HeroImage", "CreatedAt", "UpdatedAt",
}

// ExportProducts handles GET /products/export and streams the catalog as XLSX.
func (h *Handler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products := h.svc.ListProducts(service.ProductFilter{Sort: service.SortName})

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to create Excel sheet")
		return
	}

	headerRow := sheet.AddRow()
	for _, name := range exportHeaders {
		headerRow.AddCell().SetValue(name)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.SKU)
		row.AddCell().SetValue(p.Title)
		row.AddCell().SetValue(p.Brand)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Subcategory)
		row.AddCell().SetValue(p.Price.String())
		row.AddCell().SetValue(p.Stock)
		row.AddCell().SetValue(string(p.Status))
		row.AddCell().SetValue(p.HeroImage)
		row.AddCell().SetValue(p.CreatedAt.Format(time.DateTime))
		row.AddCell().SetValue(p.UpdatedAt.Format(time.DateTime))
	}

	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(w); err != nil {
		h.logger.Error("writing product export", "error", err)
	}
}

type importResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// ImportProducts handles POST /products/import with a multipart "file" field.
// Rows with a known ID update that product; the rest are created. Columns are
// matched by header name, so an export can be edited and sent back.
func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeErr(w, http.StatusBadRequest, "Excel file is required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Excel file is required")
		return
	}
	defer f.Close()

	xl, err := xlsx.OpenReaderAt(f, hdr.Size)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Failed to parse Excel file")
		return
	}
	if len(xl.Sheets) == 0 || len(xl.Sheets[0].Rows) < 2 {
		writeErr(w, http.StatusBadRequest, "Excel file is empty or missing header row")
		return
	}

	rows := xl.Sheets[0].Rows
	cols := map[string]int{}
	for i, c := range rows[0].Cells {
		cols[strings.ToLower(strings.TrimSpace(c.String()))] = i
	}

	res := importResult{Errors: []string{}}
	for n, row := range rows[1:] {
		get := func(name string) string {
			i, ok := cols[strings.ToLower(name)]
			if !ok || i >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[i].String())
		}
		line := n + 2

		in, err := importInput(get)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, "row "+strconv.Itoa(line)+": "+err.Error())
			continue
		}

		if id, err := strconv.ParseInt(get("ID"), 10, 64); err == nil {
			_, err := h.svc.UpdateProduct(r.Context(), id, in)
			if err == nil {
				res.Updated++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				res.Skipped++
				res.Errors = append(res.Errors, "row "+strconv.Itoa(line)+": "+err.Error())
				continue
			}
		}
		if _, err := h.svc.CreateProduct(r.Context(), in); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, "row "+strconv.Itoa(line)+": "+err.Error())
			continue
		}
		res.Created++
	}

	h.logger.Info("products imported", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}

// importInput turns a sheet row into a ProductInput. Empty cells are left unset.
func importInput(get func(string) string) (models.ProductInput, error) {
	var in models.ProductInput
	for name, dst := range map[string]**string{
		"SKU": &in.SKU, "Title": &in.Title, "Brand": &in.Brand, "Category": &in.Category,
		"Subcategory": &in.Subcategory, "HeroImage": &in.HeroImage,
	} {
		if v := get(name); v != "" {
			*dst = &v
		}
	}
	if v := get("Price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return in, errors.New("price must be a number")
		}
		in.Price = &d
	}
	if v := get("Stock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, errors.New("stock must be an integer")
		}
		in.Stock = &n
	}
	if v := get("Status"); v != "" {
		s := models.ProductStatus(v)
		in.Status = &s
	}
	return in, nil
}
