package detect

import (
	"regexp"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Pattern is a regular expression that indicates competitor activity.
type Pattern struct {
	Name  string
	Type  crm.CompetitorSignalType
	Regex *regexp.Regexp
}

// Keywords are matched case-insensitively as substrings. Each distinct
// keyword counts once.
var Keywords = []string{
	"competitor",
	"compare",
	"comparison",
	"sample",
	"alternative",
	"switch",
	"경쟁사",
	"타사",
	"비교",
	"샘플",
	"대체",
}

// BehavioralPatterns describe a customer using or weighing another product.
var BehavioralPatterns = []Pattern{
	{
		Name:  "comparing_products_ko",
		Type:  crm.DoctorMention,
		Regex: regexp.MustCompile(`(제품|가격).*비교`),
	},
	{
		Name:  "using_other_product_ko",
		Type:  crm.DoctorMention,
		Regex: regexp.MustCompile(`(다른|타사)\s*제품.*(사용|쓰)`),
	},
	{
		Name:  "using_other_product",
		Type:  crm.DoctorMention,
		Regex: regexp.MustCompile(`(?i)using (another|other|a different) (product|brand|drug)`),
	},
	{
		Name:  "comparing_prices",
		Type:  crm.DoctorMention,
		Regex: regexp.MustCompile(`(?i)compar(e|ing) (prices|products)`),
	},
}

// InquiryPatterns describe price or sample requests, which often precede a
// switch.
var InquiryPatterns = []Pattern{
	{
		Name:  "price_inquiry_ko",
		Type:  crm.PriceInquiry,
		Regex: regexp.MustCompile(`가격.*(문의|질문)`),
	},
	{
		Name:  "sample_request_ko",
		Type:  crm.PriceInquiry,
		Regex: regexp.MustCompile(`샘플.*(요청|문의)`),
	},
	{
		Name:  "price_inquiry",
		Type:  crm.PriceInquiry,
		Regex: regexp.MustCompile(`(?i)(price|pricing|discount) (inquir|request|question)`),
	},
	{
		Name:  "sample_request",
		Type:  crm.PriceInquiry,
		Regex: regexp.MustCompile(`(?i)(asked|request(ed)?) (for )?(a )?samples?`),
	},
}
