package mongostore

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

type costCenterDoc struct {
	CostCenter     int64  `bson:"_id"`
	CostCenterName string `bson:"costCenterName"`
}

type accountDoc struct {
	MainAccount     int64  `bson:"_id"`
	MainAccountName string `bson:"mainAccountName"`
	SpendType       string `bson:"spendType"`
}

type actualDoc struct {
	ID                      string               `bson:"_id"`
	VersionID               string               `bson:"versionId,omitempty"`
	Category                *string              `bson:"category"`
	CostCenter              int64                `bson:"costCenter"`
	Date                    *time.Time           `bson:"date"`
	AccountEntryDescription *string              `bson:"accountEntryDescription"`
	MainAccount             string               `bson:"mainAccount"`
	MainAccountName         *string              `bson:"mainAccountName"`
	Amount                  primitive.Decimal128 `bson:"amount"`
	PartyName               *string              `bson:"partyName"`
	DocumentDescription     *string              `bson:"documentDescription"`
}

// anticipatedDoc keeps months as an embedded document keyed by "Mar-25" tokens.
type anticipatedDoc struct {
	ID          string                          `bson:"_id"`
	VersionID   string                          `bson:"versionId,omitempty"`
	AccountName *string                         `bson:"accountName"`
	MainAccount int64                           `bson:"mainAccount"`
	CostCenter  int64                           `bson:"costCenter"`
	Months      map[string]primitive.Decimal128 `bson:"months"`
}

type versionDoc struct {
	ID            string    `bson:"_id"`
	Kind          string    `bson:"kind"`
	VersionNumber int       `bson:"versionNumber"`
	UploadedAt    time.Time `bson:"uploadDate"`
	FileName      string    `bson:"fileName"`
	ArchiveURI    string    `bson:"archiveUri,omitempty"`
	Data          []bson.M  `bson:"data,omitempty"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toActualDoc(a domain.ActualRecord) actualDoc {
	return actualDoc{
		ID:                      a.ID,
		VersionID:               a.VersionID,
		Category:                a.Category,
		CostCenter:              a.CostCenter,
		Date:                    a.Date,
		AccountEntryDescription: a.AccountEntryDescription,
		MainAccount:             a.MainAccount,
		MainAccountName:         a.MainAccountName,
		Amount:                  toDecimal128(a.Amount),
		PartyName:               a.PartyName,
		DocumentDescription:     a.DocumentDescription,
	}
}

func (d actualDoc) toDomain() domain.ActualRecord {
	a := domain.ActualRecord{
		ID:                      d.ID,
		VersionID:               d.VersionID,
		Category:                d.Category,
		CostCenter:              d.CostCenter,
		Date:                    d.Date,
		AccountEntryDescription: d.AccountEntryDescription,
		MainAccount:             d.MainAccount,
		MainAccountName:         d.MainAccountName,
		Amount:                  fromDecimal128(d.Amount),
		PartyName:               d.PartyName,
		DocumentDescription:     d.DocumentDescription,
	}
	if a.Date != nil {
		t := a.Date.UTC()
		a.Date = &t
	}
	return a
}

func toAnticipatedDoc(a domain.AnticipatedRecord) anticipatedDoc {
	months := make(map[string]primitive.Decimal128, len(a.Months))
	for _, m := range a.Months {
		months[m.Month.String()] = toDecimal128(m.Amount)
	}
	return anticipatedDoc{
		ID:          a.ID,
		VersionID:   a.VersionID,
		AccountName: a.AccountName,
		MainAccount: a.MainAccount,
		CostCenter:  a.CostCenter,
		Months:      months,
	}
}

func (d anticipatedDoc) toDomain() domain.AnticipatedRecord {
	a := domain.AnticipatedRecord{
		ID:          d.ID,
		VersionID:   d.VersionID,
		AccountName: d.AccountName,
		MainAccount: d.MainAccount,
		CostCenter:  d.CostCenter,
		Months:      make(domain.MonthAmounts, 0, len(d.Months)),
	}
	for k, v := range d.Months {
		m, ok := domain.ParseMonthToken(k)
		if !ok {
			continue
		}
		a.Months.Set(m, fromDecimal128(v))
	}
	a.Months.Sort()
	return a
}

func toVersionDoc(v domain.UploadVersion) versionDoc {
	doc := versionDoc{
		ID:            v.ID,
		Kind:          string(v.Kind),
		VersionNumber: v.VersionNumber,
		UploadedAt:    v.UploadedAt,
		FileName:      v.FileName,
		ArchiveURI:    v.ArchiveURI,
		Data:          make([]bson.M, len(v.Rows)),
	}
	for i, r := range v.Rows {
		doc.Data[i] = bson.M(r.Clone())
	}
	return doc
}

func (d versionDoc) toDomain() domain.UploadVersion {
	v := domain.UploadVersion{
		ID:            d.ID,
		Kind:          domain.RecordKind(d.Kind),
		VersionNumber: d.VersionNumber,
		UploadedAt:    d.UploadedAt.UTC(),
		FileName:      d.FileName,
		ArchiveURI:    d.ArchiveURI,
	}
	if d.Data != nil {
		v.Rows = make([]domain.Row, len(d.Data))
		for i, r := range d.Data {
			v.Rows[i] = domain.Row(r)
		}
	}
	return v
}
