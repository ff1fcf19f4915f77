package extract

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth bounds the Kids walk on malformed or cyclic field trees.
const maxFieldDepth = 16

// acroFormNames returns fully qualified terminal field names in document order.
// A form object that exists but cannot be dereferenced fails the whole walk.
func acroFormNames(ctx *model.Context) ([]string, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrUnreadableDocument, err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("%w: acroform: %v", ErrUnreadableDocument, err)
	}
	if acroFormDict == nil {
		return nil, nil
	}
	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fields, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("%w: acroform fields: %v", ErrUnreadableDocument, err)
	}

	var out []string
	for _, f := range fields {
		if out, err = walkField(ctx, f, "", 0, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func walkField(ctx *model.Context, obj types.Object, parent string, depth int, out []string) ([]string, error) {
	if depth > maxFieldDepth {
		return out, nil
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: form field: %v", ErrUnreadableDocument, err)
	}
	if dict == nil {
		return out, nil
	}

	name := parent
	if t, found := dict.Find("T"); found {
		partial, err := ctx.DereferenceStringOrHexLiteral(t, model.V10, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: field name: %v", ErrUnreadableDocument, err)
		}
		if partial != "" {
			if name != "" {
				name += "."
			}
			name += partial
		}
	}

	hasNamedKids := false
	if kidsObj, found := dict.Find("Kids"); found {
		kids, err := ctx.DereferenceArray(kidsObj)
		if err != nil {
			return nil, fmt.Errorf("%w: field kids: %v", ErrUnreadableDocument, err)
		}
		for _, kid := range kids {
			kidDict, err := ctx.DereferenceDict(kid)
			if err != nil {
				return nil, fmt.Errorf("%w: field kid: %v", ErrUnreadableDocument, err)
			}
			if kidDict == nil {
				continue
			}
			if _, named := kidDict.Find("T"); named {
				hasNamedKids = true
				if out, err = walkField(ctx, kid, name, depth+1, out); err != nil {
					return nil, err
				}
			}
		}
	}
	if !hasNamedKids && name != "" {
		out = append(out, name)
	}
	return out, nil
}
