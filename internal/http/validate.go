package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const ctxBody = "http.body"

// fieldMessages holds the client-facing message per json field path.
var fieldMessages = map[string]string{
	"title":             "Title is required.",
	"author":            "Author is required.",
	"genre":             "Genre is required.",
	"yearPublished":     "Year published must be an integer.",
	"copiesAvailable":   "Copies available must be a non-negative integer.",
	"rating":            "Rating must be an integer between 1 and 5.",
	"comment":           "Comment is required.",
	"googleId":          "Google ID is required.",
	"email":             "A valid email is required.",
	"username":          "Username is required.",
	"password":          "Password is required.",
	"name":              "Name must be a string.",
	"role":              "Role must be either user or admin.",
	"profile.firstName": "First name is required.",
	"profile.lastName":  "Last name is required.",
	"status":            "Status must be either borrowed or returned.",
	"bookId":            "Book ID must be a string.",
	"userId":            "User ID must be a string.",
}

var jsonNamesOnce sync.Once

// useJSONNames makes validator report fields by their json name, so messages can be
// looked up by the same path the client sent.
func useJSONNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// Validate binds the JSON body into T and rejects the request with 422 when binding or
// validation fails. An empty body binds as {}. Handlers read the result with Body.
func Validate[T any]() gin.HandlerFunc {
	useJSONNames()
	return func(c *gin.Context) {
		in := new(T)
		err := c.ShouldBindJSON(in)
		if errors.Is(err, io.EOF) {
			err = binding.Validator.ValidateStruct(in)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrors(err)})
			return
		}
		c.Set(ctxBody, in)
		c.Next()
	}
}

// Body returns the value bound by Validate[T]. It panics when the route has no such
// validator, which is a wiring bug.
func Body[T any](c *gin.Context) *T {
	return c.MustGet(ctxBody).(*T)
}

func fieldErrors(err error) []map[string]string {
	var (
		ves validator.ValidationErrors
		ute *json.UnmarshalTypeError
		se  *json.SyntaxError
	)
	switch {
	case errors.As(err, &ves):
		out := make([]map[string]string, 0, len(ves))
		seen := map[string]bool{}
		for _, fe := range ves {
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			if seen[field] {
				continue
			}
			seen[field] = true
			out = append(out, map[string]string{field: messageFor(field)})
		}
		return out
	case errors.As(err, &ute):
		field := ute.Field
		if field == "" {
			field = "body"
		}
		return []map[string]string{{field: messageFor(field)}}
	case errors.As(err, &se), errors.Is(err, io.ErrUnexpectedEOF):
		return []map[string]string{{"body": "Request body must be a JSON object."}}
	}
	return []map[string]string{{"body": err.Error()}}
}

func messageFor(field string) string {
	if m, ok := fieldMessages[field]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid.", field)
}
