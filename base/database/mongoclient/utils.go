package mongoclient

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// MakeBsonM turns an options struct into an equality selector. Nil pointers,
// zero values and fields tagged "-" are left out; non-nil pointers are
// dereferenced.
func MakeBsonM(selectable interface{}) (bson.M, error) {
	val := reflect.ValueOf(selectable)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	res := bson.M{}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		tag, err := bsoncodec.DefaultStructTagParser(val.Type().Field(i))
		if err != nil {
			return nil, err
		}
		if tag.Skip || !field.CanInterface() || field.IsZero() {
			continue
		}
		if field.Kind() == reflect.Ptr {
			res[tag.Name] = field.Elem().Interface()
			continue
		}
		res[tag.Name] = field.Interface()
	}
	return res, nil
}
