package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/scan"
)

// The scan service absorbs provider failures into verdicts, so the only
// error surfaces left are invalid input and a dead chain RPC.

func (s *Server) handleScanWallet(c *gin.Context) {
	report, err := s.scanner.AnalyzeWallet(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.renderScanError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCheckCollection(c *gin.Context) {
	report, err := s.scanner.CheckCollection(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.renderScanError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleAnalyzeNFT(c *gin.Context) {
	report, err := s.scanner.AnalyzeNFT(c.Request.Context(), c.Param("address"), c.Param("tokenId"))
	if err != nil {
		s.renderScanError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) renderScanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scan.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"message": err.Error(),
		})
	case errors.Is(err, scan.ErrChainUnavailable):
		logging.L(c.Request.Context()).Error("chain RPC unavailable", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "chain_unavailable",
			"message": "the Ethereum RPC endpoint did not answer; try again later",
		})
	default:
		logging.L(c.Request.Context()).Error("unexpected scan error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "unexpected error during analysis",
		})
	}
}
