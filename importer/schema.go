package importer

import "encoding/xml"

// LangValue is one localized string. The target shop runs a single
// language installation with id 1.
type LangValue struct {
	ID    int    `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// LangField wraps a LangValue the way multilingual fields nest on the
// wire.
type LangField struct {
	Language LangValue `xml:"language"`
}

func lang(value string) LangField {
	return LangField{Language: LangValue{ID: 1, Value: value}}
}

type CategorySchema struct {
	XMLName     xml.Name  `xml:"category"`
	Name        LangField `xml:"name"`
	LinkRewrite LangField `xml:"link_rewrite"`
	Active      string    `xml:"active"`
	ParentID    string    `xml:"id_parent"`
}

type ManufacturerSchema struct {
	XMLName xml.Name `xml:"manufacturer"`
	Name    string   `xml:"name"`
	Active  string   `xml:"active"`
}

type FeatureSchema struct {
	XMLName  xml.Name  `xml:"product_feature"`
	Name     LangField `xml:"name"`
	Position string    `xml:"position"`
}

type FeatureValueSchema struct {
	XMLName   xml.Name  `xml:"product_feature_value"`
	FeatureID string    `xml:"id_feature"`
	Custom    string    `xml:"custom"`
	Value     LangField `xml:"value"`
}

type IDRef struct {
	ID int `xml:"id"`
}

// FeatureRef pairs a feature with the concrete value a product carries.
type FeatureRef struct {
	ID             int `xml:"id"`
	FeatureValueID int `xml:"id_feature_value"`
}

type ProductAssociations struct {
	Categories struct {
		Category []IDRef `xml:"category"`
	} `xml:"categories"`
	Features struct {
		Feature []FeatureRef `xml:"product_feature"`
	} `xml:"product_features"`
}

type ProductSchema struct {
	XMLName                xml.Name            `xml:"product"`
	CategoryDefaultID      string              `xml:"id_category_default"`
	ManufacturerID         string              `xml:"id_manufacturer,omitempty"`
	TaxRulesGroupID        string              `xml:"id_tax_rules_group"`
	ShopDefaultID          string              `xml:"id_shop_default"`
	Reference              string              `xml:"reference"`
	ISBN                   string              `xml:"isbn,omitempty"`
	Width                  string              `xml:"width"`
	Height                 string              `xml:"height"`
	Depth                  string              `xml:"depth"`
	Weight                 string              `xml:"weight"`
	Price                  string              `xml:"price"`
	AdditionalShippingCost string              `xml:"additional_shipping_cost"`
	MinimalQuantity        string              `xml:"minimal_quantity"`
	Active                 string              `xml:"active"`
	AvailableForOrder      string              `xml:"available_for_order"`
	ShowPrice              string              `xml:"show_price"`
	Indexed                string              `xml:"indexed"`
	Condition              string              `xml:"condition"`
	ShowCondition          string              `xml:"show_condition"`
	State                  string              `xml:"state"`
	DateAdd                string              `xml:"date_add"`
	Name                   LangField           `xml:"name"`
	LinkRewrite            LangField           `xml:"link_rewrite"`
	Description            LangField           `xml:"description"`
	DescriptionShort       LangField           `xml:"description_short"`
	Associations           ProductAssociations `xml:"associations"`
}

type CarrierSchema struct {
	XMLName         xml.Name  `xml:"carrier"`
	Name            string    `xml:"name"`
	Active          string    `xml:"active"`
	Deleted         string    `xml:"deleted"`
	ShippingHandling string   `xml:"shipping_handling"`
	IsFree          string    `xml:"is_free"`
	ShippingMethod  string    `xml:"shipping_method"`
	MaxWidth        string    `xml:"max_width"`
	MaxHeight       string    `xml:"max_height"`
	MaxDepth        string    `xml:"max_depth"`
	MaxWeight       string    `xml:"max_weight"`
	Grade           string    `xml:"grade"`
	Delay           LangField `xml:"delay"`
}

// WeightRangeSchema is the single 0..10000 bracket every provisioned
// carrier gets, so one delivery price row covers all products.
type WeightRangeSchema struct {
	XMLName    xml.Name `xml:"weight_range"`
	CarrierID  string   `xml:"id_carrier"`
	Delimiter1 string   `xml:"delimiter1"`
	Delimiter2 string   `xml:"delimiter2"`
}

type StockAvailableSchema struct {
	XMLName            xml.Name `xml:"stock_available"`
	ID                 string   `xml:"id"`
	ProductID          string   `xml:"id_product"`
	ProductAttributeID string   `xml:"id_product_attribute"`
	ShopID             string   `xml:"id_shop"`
	Quantity           string   `xml:"quantity"`
	DependsOnStock     string   `xml:"depends_on_stock"`
	OutOfStock         string   `xml:"out_of_stock"`
}
