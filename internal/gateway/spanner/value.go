package spanner

import (
	"strconv"

	"cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// decodeValue converts a Spanner wire value into a plain Go value:
// INT64 becomes int64, finite FLOAT32/FLOAT64 float64, BOOL bool, ARRAY []any,
// STRUCT map[string]any and everything else its string form.
func decodeValue(t *spannerpb.Type, v *structpb.Value) any {
	if v == nil {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}

	switch t.GetCode() {
	case spannerpb.TypeCode_INT64:
		if n, err := strconv.ParseInt(v.GetStringValue(), 10, 64); err == nil {
			return n
		}
		return v.GetStringValue()
	case spannerpb.TypeCode_FLOAT64, spannerpb.TypeCode_FLOAT32:
		return decodeFloat(v)
	case spannerpb.TypeCode_BOOL:
		return v.GetBoolValue()
	case spannerpb.TypeCode_ARRAY:
		list := v.GetListValue().GetValues()
		out := make([]any, len(list))
		for i, elem := range list {
			out[i] = decodeValue(t.GetArrayElementType(), elem)
		}
		return out
	case spannerpb.TypeCode_STRUCT:
		fields := t.GetStructType().GetFields()
		list := v.GetListValue().GetValues()
		out := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(list) {
				out[f.GetName()] = decodeValue(f.GetType(), list[i])
			}
		}
		return out
	default:
		return v.GetStringValue()
	}
}

func decodeFloat(v *structpb.Value) any {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue
	case *structpb.Value_StringValue:
		// NaN and the infinities arrive as strings and stay that way so the
		// result can still be encoded as JSON.
		return k.StringValue
	}
	return nil
}
