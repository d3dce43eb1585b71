package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Success bool     `json:"success"`
  Error   APIError `json:"error"`
}

type SuccessEnvelope struct {
  Success bool `json:"success"`
  Data    any  `json:"data"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: payload})
}

func RespondStatus(c *gin.Context, status int, payload any) {
  c.JSON(status, SuccessEnvelope{Success: true, Data: payload})
}
