package server

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/fundlock/fundlock/api/pagination"
	"github.com/fundlock/fundlock/funding"
)

// handleFunc is a loosely typed service handler. Supported shapes:
//
//	func(c *gin.Context) error
//	func(c *gin.Context) (*resp, error)
//	func(c *gin.Context, req *T) error
//	func(c *gin.Context, req *T) (*resp, error)
//	func(c *gin.Context, req *T, page *pagination.Query) (*pagination.Result, error)
//
// The request pointer is bound from the query string or JSON body.
type handleFunc interface{}

var (
	ginCtxType = reflect.TypeOf(&gin.Context{})
	pageType   = reflect.TypeOf(&pagination.Query{})
	resultType = reflect.TypeOf(&pagination.Result{})
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

func validateFunc(fn handleFunc) error {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return errors.New("handler is not a function")
	}

	if t.NumIn() < 1 || t.NumIn() > 3 {
		return errors.New("handler must take one to three parameters")
	}
	if t.In(0) != ginCtxType {
		return errors.New("first parameter must be *gin.Context")
	}
	if t.NumIn() >= 2 && t.In(1).Kind() != reflect.Ptr {
		return errors.New("second parameter must be a pointer")
	}
	if t.NumIn() == 3 && t.In(2) != pageType {
		return errors.New("third parameter must be *pagination.Query")
	}

	if t.NumOut() < 1 || t.NumOut() > 2 {
		return errors.New("handler must return one or two values")
	}
	if !t.Out(t.NumOut() - 1).Implements(errorType) {
		return errors.New("last return value must be an error")
	}
	if t.NumIn() == 3 && (t.NumOut() != 2 || t.Out(0) != resultType) {
		return errors.New("paginated handler must return *pagination.Result")
	}

	return nil
}

// handle adapts a service handler into a gin handler. Invalid handler
// shapes are a programming error and panic at route registration.
func (s *Server) handle(fn handleFunc) gin.HandlerFunc {
	if err := validateFunc(fn); err != nil {
		panic(err)
	}

	v := reflect.ValueOf(fn)
	t := v.Type()

	return func(c *gin.Context) {
		args := make([]reflect.Value, 0, t.NumIn())
		args = append(args, reflect.ValueOf(c))

		if t.NumIn() >= 2 {
			req := reflect.New(t.In(1).Elem())
			if err := bindRequest(c, req.Interface()); err != nil {
				_ = c.Error(err)
				return
			}
			args = append(args, req)
		}

		if t.NumIn() == 3 {
			args = append(args, reflect.ValueOf(pagination.FromContext(c)))
		}

		outs := v.Call(args)
		if errVal := outs[len(outs)-1]; !errVal.IsNil() {
			_ = c.Error(errVal.Interface().(error))
			return
		}

		var data interface{}
		if len(outs) == 2 {
			data = outs[0].Interface()
		}

		c.JSON(http.StatusOK, gin.H{
			"code": http.StatusOK,
			"msg":  "success",
			"data": data,
		})
	}
}

func bindRequest(c *gin.Context, req interface{}) error {
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(req)
	} else {
		err = c.ShouldBindJSON(req)
	}

	if err != nil {
		return errors.Wrap(funding.ErrValidation, err.Error())
	}

	return nil
}
