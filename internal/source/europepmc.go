package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

// EuropePMC queries the Europe PMC REST search API, which indexes PubMed
// alongside preprint servers.
type EuropePMC struct {
	baseURL string
	http    httpGetter
}

// NewEuropePMC creates a Europe PMC client
func NewEuropePMC(opts Options) *EuropePMC {
	base := opts.BaseURL
	if base == "" {
		base = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"
	}
	return &EuropePMC{
		baseURL: base,
		http:    newHTTPGetter(opts.HTTPClient, opts.UserAgent, opts.MaxBytes),
	}
}

func (e *EuropePMC) Source() model.SourceDatabase { return model.SourceEuropePMC }

func (e *EuropePMC) Endpoint() string { return e.baseURL }

// Fetch returns the raw JSON response for a query
func (e *EuropePMC) Fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("pageSize", strconv.Itoa(clampLimit(limit, 25)))
	params.Set("resultType", "core")
	return e.http.get(ctx, e.baseURL+"?"+params.Encode(), "application/json")
}

type europePMCResponse struct {
	ResultList *struct {
		Result []json.RawMessage `json:"result"`
	} `json:"resultList"`
}

type europePMCItem struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	PMID         string `json:"pmid"`
	PMCID        string `json:"pmcid"`
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	AuthorList   struct {
		Author []struct {
			FullName  string `json:"fullName"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"author"`
	} `json:"authorList"`
	JournalTitle string `json:"journalTitle"`
	JournalInfo  struct {
		Journal struct {
			Title string `json:"title"`
		} `json:"journal"`
	} `json:"journalInfo"`
	BookOrReportDetails struct {
		Publisher string `json:"publisher"`
	} `json:"bookOrReportDetails"`
	PubYear              string `json:"pubYear"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	AbstractText         string `json:"abstractText"`
	PubTypeList          struct {
		PubType []string `json:"pubType"`
	} `json:"pubTypeList"`
	MeshHeadingList struct {
		MeshHeading []struct {
			DescriptorName string `json:"descriptorName"`
		} `json:"meshHeading"`
	} `json:"meshHeadingList"`
}

// Decode parses a Europe PMC search response
func (e *EuropePMC) Decode(payload []byte, query string) ([]RawRecord, error) {
	var resp europePMCResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: europepmc: %v", ErrMalformedPayload, err)
	}
	if resp.ResultList == nil {
		return nil, fmt.Errorf("%w: europepmc: missing resultList", ErrMalformedPayload)
	}

	records := make([]RawRecord, 0, len(resp.ResultList.Result))
	for _, raw := range resp.ResultList.Result {
		var item europePMCItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		rec := RawRecord{
			Source:   model.SourceEuropePMC,
			Title:    strings.TrimSpace(item.Title),
			DOI:      item.DOI,
			URL:      europePMCURL(item),
			Abstract: item.AbstractText,
			Types:    item.PubTypeList.PubType,
			Origin:   item.Source,
			Blob:     string(raw),
			Query:    query,
		}

		rec.Venue = item.JournalInfo.Journal.Title
		if rec.Venue == "" {
			rec.Venue = item.JournalTitle
		}
		if rec.Venue == "" {
			rec.Venue = item.BookOrReportDetails.Publisher
		}

		rec.Date = item.FirstPublicationDate
		if rec.Date == "" {
			rec.Date = item.PubYear
		}

		for _, a := range item.AuthorList.Author {
			name := strings.TrimSpace(a.FullName)
			if name == "" {
				name = strings.TrimSpace(a.FirstName + " " + a.LastName)
			}
			if name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		if len(rec.Authors) == 0 && item.AuthorString != "" {
			for _, name := range strings.Split(strings.TrimSuffix(item.AuthorString, "."), ",") {
				if name = strings.TrimSpace(name); name != "" {
					rec.Authors = append(rec.Authors, name)
				}
			}
		}
		// MeSH headings carry the Humans/Animals check tags
		for _, mh := range item.MeshHeadingList.MeshHeading {
			if mh.DescriptorName != "" {
				rec.Types = append(rec.Types, "mesh:"+mh.DescriptorName)
			}
		}

		records = append(records, rec)
	}
	return records, nil
}

func europePMCURL(item europePMCItem) string {
	switch {
	case item.Source != "" && item.ID != "":
		return fmt.Sprintf("https://europepmc.org/article/%s/%s", item.Source, item.ID)
	case item.PMID != "":
		return "https://europepmc.org/article/MED/" + item.PMID
	default:
		return ""
	}
}
