package passkit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Card is everything the builder needs to render one loyalty pass.
type Card struct {
	SerialNumber        string
	AuthenticationToken string
	PointsBalance       uint

	BusinessName     string
	PrimaryColor     string
	BackgroundColor  string
	RewardRate       decimal.Decimal
	RedemptionPoints uint
	RedemptionRate   decimal.Decimal

	CustomerName  string
	CustomerPhone string
}

type barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
}

type field struct {
	Key   string      `json:"key"`
	Label string      `json:"label"`
	Value interface{} `json:"value"`
}

type storeCard struct {
	PrimaryFields   []field `json:"primaryFields"`
	SecondaryFields []field `json:"secondaryFields"`
	BackFields      []field `json:"backFields"`
}

type passDescriptor struct {
	FormatVersion       int       `json:"formatVersion"`
	PassTypeIdentifier  string    `json:"passTypeIdentifier"`
	SerialNumber        string    `json:"serialNumber"`
	TeamIdentifier      string    `json:"teamIdentifier"`
	OrganizationName    string    `json:"organizationName"`
	Description         string    `json:"description"`
	LogoText            string    `json:"logoText"`
	BackgroundColor     string    `json:"backgroundColor"`
	ForegroundColor     string    `json:"foregroundColor"`
	LabelColor          string    `json:"labelColor"`
	WebServiceURL       string    `json:"webServiceURL"`
	AuthenticationToken string    `json:"authenticationToken"`
	Barcode             barcode   `json:"barcode"`
	Barcodes            []barcode `json:"barcodes"`
	StoreCard           storeCard `json:"storeCard"`
}

func (b *Builder) descriptor(card Card) passDescriptor {
	qr := barcode{
		Format:          "PKBarcodeFormatQR",
		Message:         card.SerialNumber,
		MessageEncoding: "iso-8859-1",
	}
	earnRate := card.RewardRate.RoundBank(0).String()
	redeemPercent := card.RedemptionRate.Mul(decimal.NewFromInt(100)).RoundBank(0).String()

	return passDescriptor{
		FormatVersion:       1,
		PassTypeIdentifier:  b.cfg.PassTypeIdentifier,
		SerialNumber:        card.SerialNumber,
		TeamIdentifier:      b.cfg.TeamIdentifier,
		OrganizationName:    card.BusinessName,
		Description:         card.BusinessName + " Loyalty",
		LogoText:            card.BusinessName,
		BackgroundColor:     card.BackgroundColor,
		ForegroundColor:     card.PrimaryColor,
		LabelColor:          "#FFFFFF",
		WebServiceURL:       b.cfg.WebServiceURL,
		AuthenticationToken: card.AuthenticationToken,
		Barcode:             qr,
		Barcodes:            []barcode{qr},
		StoreCard: storeCard{
			PrimaryFields: []field{
				{Key: "points", Label: "Points Balance", Value: card.PointsBalance},
			},
			SecondaryFields: []field{
				{Key: "reward_rate", Label: "Earn Rate", Value: fmt.Sprintf("%s pt per $1", earnRate)},
				{Key: "redeem", Label: "Redeem", Value: fmt.Sprintf("%d pts → %s%% off", card.RedemptionPoints, redeemPercent)},
			},
			BackFields: []field{
				{Key: "customer", Label: "Customer", Value: card.CustomerName},
				{Key: "phone", Label: "Phone", Value: card.CustomerPhone},
			},
		},
	}
}
