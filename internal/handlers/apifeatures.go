package handlers

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/* =======================
   LIST QUERY FEATURES
======================= */

const defaultListLimit = 50

// Query parameters consumed by the list machinery itself; everything else is
// treated as a filter.
var reservedListParams = map[string]struct{}{
	"page":    {},
	"limit":   {},
	"sort":    {},
	"fields":  {},
	"keyword": {},
}

var rangeOperators = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

type listOptions struct {
	// SearchFields are matched case-insensitively against the keyword param.
	SearchFields []string
	// FieldAliases renames query parameters to stored field names, e.g.
	// subCategory -> subCategories.
	FieldAliases map[string]string
}

type listQuery struct {
	Filter bson.M
	Page   int64
	Limit  int64
	Find   *options.FindOptions
}

func parseListQuery(c *gin.Context, opts listOptions) (listQuery, error) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		return listQuery{}, err
	}

	filter := buildFilter(c.Request.URL.Query(), opts.FieldAliases)
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" && len(opts.SearchFields) > 0 {
		or := make([]bson.M, 0, len(opts.SearchFields))
		for _, field := range opts.SearchFields {
			or = append(or, bson.M{field: bson.M{"$regex": keyword, "$options": "i"}})
		}
		filter["$or"] = or
	}

	find := options.Find().
		SetSkip((page - 1) * limit).
		SetLimit(limit).
		SetSort(buildSort(c.Query("sort")))

	if projection := buildProjection(c.Query("fields")); projection != nil {
		find.SetProjection(projection)
	}

	return listQuery{Filter: filter, Page: page, Limit: limit, Find: find}, nil
}

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultListLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, NewValidationError("page must be a positive number")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, NewValidationError("limit must be a positive number")
		}
		limit = l
	}

	return page, limit, nil
}

// buildFilter maps query parameters to equality and range predicates.
// "price[gte]=10" becomes {price: {$gte: 10}}.
func buildFilter(values url.Values, aliases map[string]string) bson.M {
	filter := bson.M{}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		value := strings.TrimSpace(vals[0])
		if value == "" {
			continue
		}

		field, operator := splitFilterKey(key)
		if _, reserved := reservedListParams[field]; reserved {
			continue
		}
		if alias, ok := aliases[field]; ok {
			field = alias
		}

		if operator == "" {
			filter[field] = filterValue(value)
			continue
		}

		mongoOp, ok := rangeOperators[operator]
		if !ok {
			continue
		}
		rangeFilter, ok := filter[field].(bson.M)
		if !ok {
			rangeFilter = bson.M{}
			filter[field] = rangeFilter
		}
		rangeFilter[mongoOp] = filterValue(value)
	}

	return filter
}

// splitFilterKey separates "price[gte]" into ("price", "gte").
func splitFilterKey(key string) (string, string) {
	open := strings.Index(key, "[")
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}

// filterValue decodes a raw query value into the type it compares against:
// ObjectID references, numbers, booleans, or plain strings.
func filterValue(raw string) interface{} {
	if id, err := primitive.ObjectIDFromHex(raw); err == nil {
		return id
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// buildSort turns "-price,title" into a Mongo sort document. Descending
// creation time is the default.
func buildSort(sortParam string) bson.D {
	sortParam = strings.TrimSpace(sortParam)
	if sortParam == "" {
		return bson.D{{Key: "createdAt", Value: -1}}
	}

	sort := bson.D{}
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}

	if len(sort) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return sort
}

// buildProjection turns "title,price" into an inclusion projection. With no
// selection the internal version field is excluded.
func buildProjection(fieldsParam string) bson.M {
	fieldsParam = strings.TrimSpace(fieldsParam)
	if fieldsParam == "" {
		return bson.M{"__v": 0}
	}

	projection := bson.M{}
	for _, field := range strings.Split(fieldsParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		projection[field] = 1
	}
	if len(projection) == 0 {
		return bson.M{"__v": 0}
	}
	return projection
}

// paginationMeta mirrors the shape list endpoints return: current page,
// limit, page count and next/previous pages when they exist.
func paginationMeta(total, page, limit int64) gin.H {
	numberOfPages := int64(0)
	if total > 0 {
		numberOfPages = int64(math.Ceil(float64(total) / float64(limit)))
	}

	meta := gin.H{
		"currentPage":   page,
		"limit":         limit,
		"numberOfPages": numberOfPages,
	}
	if page*limit < total {
		meta["next"] = page + 1
	}
	if page > 1 {
		meta["previous"] = page - 1
	}
	return meta
}
