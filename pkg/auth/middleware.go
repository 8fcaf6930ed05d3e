package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor rejects admin calls without the configured token
func (a *TokenAuth) UnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := a.authenticate(ctx); err != nil {
			logger.Warn("Rejected admin call",
				zap.String("method", info.FullMethod),
				zap.Error(err))
			return nil, status.Errorf(codes.Unauthenticated, "authentication failed: %v", err)
		}
		return handler(ctx, req)
	}
}

func (a *TokenAuth) authenticate(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ErrMissingToken
	}
	values := md.Get(TokenMetadataKey)
	if len(values) == 0 {
		return ErrMissingToken
	}
	return a.Check(values[0])
}

// UnaryClientInterceptor attaches the admin token to outgoing calls
func UnaryClientInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, TokenMetadataKey, BearerValue(token))
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// RequireToken guards HTTP routes meant for the site owner
func (a *TokenAuth) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Check(c.GetHeader(TokenMetadataKey)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": err.Error(),
			})
			return
		}
		c.Next()
	}
}
