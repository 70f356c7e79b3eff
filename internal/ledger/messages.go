package ledger

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PageRequest asks for one page of a bulk read.
//
//	message PageRequest { int32 page_number = 1; int32 page_size = 2; }
type PageRequest struct {
	PageNumber int32
	PageSize   int32
}

func (p *PageRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(p.PageNumber)))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(p.PageSize)))
	return b, nil
}

func (p *PageRequest) Unmarshal(data []byte) error {
	*p = PageRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if typ != protowire.VarintType || (num != 1 && num != 2) {
			return skip(num, typ, field)
		}
		v, n := protowire.ConsumeVarint(field)
		if n < 0 {
			return n, protowire.ParseError(n)
		}
		if num == 1 {
			p.PageNumber = int32(v)
		} else {
			p.PageSize = int32(v)
		}
		return n, nil
	})
}

// AssetPage is one page of serialized assets.
//
//	message AssetPage { repeated bytes assets = 1; }
type AssetPage struct {
	Assets [][]byte
}

func (a *AssetPage) Marshal() ([]byte, error) {
	var b []byte
	for _, asset := range a.Assets {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, asset)
	}
	return b, nil
}

func (a *AssetPage) Unmarshal(data []byte) error {
	a.Assets = nil
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num != 1 || typ != protowire.BytesType {
			return skip(num, typ, field)
		}
		v, n := protowire.ConsumeBytes(field)
		if n < 0 {
			return n, protowire.ParseError(n)
		}
		asset := make([]byte, len(v))
		copy(asset, v)
		a.Assets = append(a.Assets, asset)
		return n, nil
	})
}

// walkFields calls fn for each field; fn returns how many value bytes it consumed.
func walkFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 || m > len(data) {
			return errors.New("field overruns buffer")
		}
		data = data[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return n, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}
	return n, nil
}
