package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

// ErrorHandler перехватывает panic и ошибки, добавленные через c.Error, если ответ ещё не записан.
// Внутренние ошибки маскируются: клиент видит только сообщение AppError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithFields(logrus.Fields{
					"panic":  fmt.Sprint(r),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"stack":  string(debug.Stack()),
				}).Error("panic при обработке запроса")

				if !c.Writer.Written() {
					response.Error(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
				}
				c.Abort()
			}
		}()

		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   apperror.CodeOf(err),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("ошибка запроса")

		response.Error(c, err)
	}
}
