package model

import "time"

// NoOutputPath is written to the Out Path column for rasters, which are
// inventoried but not downloaded.
const NoOutputPath = "None"

// DateLayout is the Extraction Date format used in every CSV.
const DateLayout = "2006-01-02"

// InventoryRow is one line of extracted_data_vector.csv or
// extracted_data_raster.csv.
type InventoryRow struct {
	Source         string    `json:"source"`
	Name           string    `json:"name"`
	GeometryType   string    `json:"geometry_type"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	ExtractionDate time.Time `json:"extraction_date"`
	OutPath        string    `json:"out_path"`
}

// Record returns the row as CSV fields.
func (r InventoryRow) Record() []string {
	return []string{
		r.Source,
		r.Name,
		r.GeometryType,
		r.Description,
		r.URL,
		r.ExtractionDate.Format(DateLayout),
		r.OutPath,
	}
}

// InventoryHeader is the header row of the layer inventories.
var InventoryHeader = []string{"Source", "Name", "Geometry Type", "Description", "URL", "Extraction Date", "Out Path"}

// ErrorRow is one line of error_log.csv.
type ErrorRow struct {
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	ExtractionDate time.Time `json:"extraction_date"`
	Error          string    `json:"error"`
}

// Record returns the row as CSV fields.
func (r ErrorRow) Record() []string {
	return []string{r.Name, r.URL, r.ExtractionDate.Format(DateLayout), r.Error}
}

// ErrorHeader is the header row of the error log.
var ErrorHeader = []string{"Name", "URL", "Extraction Date", "Error"}
