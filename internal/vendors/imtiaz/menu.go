package imtiaz

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

// SectionRef locates one sub-section in the shop navigation
type SectionRef struct {
	MenuID         interface{} `json:"menu_id"`
	MenuName       string      `json:"menu_name"`
	SectionID      interface{} `json:"section_id"`
	SectionName    string      `json:"section_name"`
	SubSectionID   interface{} `json:"sub_section_id"`
	SubSectionName string      `json:"sub_section_name"`
}

// Structure is the navigation skeleton stored by the menu phase
type Structure struct {
	RestBrID interface{}  `json:"rest_brId"`
	Sections []SectionRef `json:"sections"`
}

// MenuSkeleton is the menu phase payload
type MenuSkeleton struct {
	Status    int       `json:"status"`
	Structure Structure `json:"structure"`
}

// ProductList is the post-menu payload
type ProductList struct {
	Status int              `json:"status"`
	Msg    string           `json:"msg"`
	Data   vendors.Products `json:"data"`
}

type namedNode struct {
	ID   interface{} `json:"id"`
	Name string      `json:"name"`
}

type menuSection struct {
	ID      interface{} `json:"id"`
	Name    string      `json:"name"`
	Section []namedNode `json:"section"`
}

func nameOrUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func (f *Fetcher) branchQuery(restBrID string) url.Values {
	return url.Values{
		"restId":        {RestID},
		"rest_brId":     {restBrID},
		"delivery_type": {"0"},
		"source":        {""},
	}
}

// GenRequest walks menu sections and their sub-sections for one branch and
// returns the navigation skeleton. Products are fetched by ParseItems.
func (f *Fetcher) GenRequest(ctx context.Context, store models.LocationRecord) (string, models.Payload, error) {
	restBrID := models.StringValue(store["rest_brId"], "")
	if restBrID == "" {
		f.logger.Error().Str("store", store.StoreID()).Msg("Location has no rest_brId")
		return "", nil, nil
	}

	envelope, err := f.get(ctx, "/api/menu-section", f.branchQuery(restBrID))
	if err != nil {
		return restBrID, nil, err
	}
	var menus []menuSection
	if !envelope.DecodeData(&menus) || len(menus) == 0 {
		f.logger.Error().Str("rest_brId", restBrID).Msg("No menu sections found")
		return restBrID, nil, nil
	}

	skeleton := MenuSkeleton{
		Status:    200,
		Structure: Structure{RestBrID: store["rest_brId"]},
	}
	for _, menu := range menus {
		for _, section := range menu.Section {
			subSections, err := f.fetchSubSections(ctx, restBrID, section.ID)
			if err != nil {
				f.logger.Debug().Err(err).Str("section", section.Name).Msg("Sub-sections unavailable")
				continue
			}
			for _, sub := range subSections {
				skeleton.Structure.Sections = append(skeleton.Structure.Sections, SectionRef{
					MenuID:         menu.ID,
					MenuName:       nameOrUnknown(menu.Name),
					SectionID:      section.ID,
					SectionName:    nameOrUnknown(section.Name),
					SubSectionID:   sub.ID,
					SubSectionName: nameOrUnknown(sub.Name),
				})
			}
		}
	}

	if len(skeleton.Structure.Sections) == 0 {
		f.logger.Error().Str("rest_brId", restBrID).Msg("No sub-sections found")
		return restBrID, nil, nil
	}

	f.logger.Info().Str("rest_brId", restBrID).Int("sections", len(skeleton.Structure.Sections)).Msg("Imtiaz menu structure fetched")
	payload, err := vendors.ToPayload(skeleton)
	return restBrID, payload, err
}

func (f *Fetcher) fetchSubSections(ctx context.Context, restBrID string, sectionID interface{}) ([]namedNode, error) {
	query := f.branchQuery(restBrID)
	query.Set("sectionId", models.StringValue(sectionID, ""))

	envelope, err := f.get(ctx, "/api/sub-section", query)
	if err != nil {
		return nil, err
	}
	var data []struct {
		DishSubSections []namedNode `json:"dish_sub_sections"`
	}
	if !envelope.DecodeData(&data) || len(data) == 0 {
		return nil, nil
	}
	return data[0].DishSubSections, nil
}

// ParseItems fetches the products of every sub-section in the skeleton and tags
// each product with its navigation ids and names.
func (f *Fetcher) ParseItems(ctx context.Context, log interfaces.StatusLog, menu models.Payload, itemID string) (models.Payload, []string, error) {
	var skeleton MenuSkeleton
	if err := vendors.FromPayload(menu, &skeleton); err != nil {
		return menu, nil, err
	}

	structure := skeleton.Structure
	restBrID := models.StringValue(structure.RestBrID, "")
	if restBrID == "" || len(structure.Sections) == 0 {
		f.logger.Error().Str("menu", itemID).Msg("Invalid menu structure")
		log.Log(itemID, "structure", "invalid", models.LogFailure)
		return menu, nil, nil
	}

	log.Log(itemID, "start", fmt.Sprintf("sections:%d", len(structure.Sections)), "rest_brId:"+restBrID, models.LogSuccess)

	all := vendors.Products{}
	for i, ref := range structure.Sections {
		subID := models.StringValue(ref.SubSectionID, "")
		f.logger.Debug().Int("index", i+1).Int("total", len(structure.Sections)).Str("sub_section", ref.SubSectionName).Msg("Fetching sub-section products")

		products := f.fetchSubSectionProducts(ctx, restBrID, subID)
		if len(products) == 0 {
			log.Log(itemID, "subsection:"+subID, "name:"+ref.SubSectionName, "products:0", "no_data")
			continue
		}

		products.Tag("menu_id", ref.MenuID)
		products.Tag("menu_name", ref.MenuName)
		products.Tag("section_id", ref.SectionID)
		products.Tag("section_name", ref.SectionName)
		products.Tag("sub_section_id", ref.SubSectionID)
		products.Tag("sub_section_name", ref.SubSectionName)
		all = append(all, products...)

		log.Log(itemID, "subsection:"+subID, "name:"+ref.SubSectionName, "products:"+strconv.Itoa(len(products)), models.LogSuccess)
	}

	log.Log(itemID, "complete", "total_products:"+strconv.Itoa(len(all)), models.LogSuccess)
	f.logger.Info().Str("menu", itemID).Int("products", len(all)).Msg("Imtiaz products fetched")

	payload, err := vendors.ToPayload(ProductList{Status: 200, Msg: "success", Data: all})
	return payload, nil, err
}

// fetchSubSectionProducts pages items-by-subsection until a short page
func (f *Fetcher) fetchSubSectionProducts(ctx context.Context, restBrID, subSectionID string) vendors.Products {
	var all vendors.Products
	for page := 1; ; page++ {
		query := f.branchQuery(restBrID)
		query.Set("sub_section_id", subSectionID)
		query.Set("brand_name", "")
		query.Set("min_price", "0")
		query.Set("max_price", "")
		query.Set("sort_by", "")
		query.Set("sort", "")
		query.Set("page_no", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(ProductPageSize))
		query.Set("start", strconv.Itoa((page-1)*ProductPageSize))
		query.Set("limit", strconv.Itoa(ProductPageSize))

		envelope, err := f.get(ctx, "/api/items-by-subsection", query)
		if err != nil {
			f.logger.Error().Err(err).Str("sub_section", subSectionID).Int("page", page).Msg("Products page failed")
			return all
		}

		var products vendors.Products
		if !envelope.DecodeData(&products) || len(products) == 0 {
			return all
		}
		all = append(all, products...)
		if len(products) < ProductPageSize {
			return all
		}
	}
}
