package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palabeo/palabeo/internal/validation"
)

const (
	validationServiceName = "palabeo.v1.Validation"
	sessionServiceName    = "palabeo.v1.Session"
)

// Validation kinds accepted by Validate.
const (
	KindRegistration = "registration"
	KindLogin        = "login"
	KindUserCreation = "user_creation"
	KindUserUpdate   = "user_update"
	KindWord         = "word"
	KindTranslate    = "translate"
	KindWordsSearch  = "words_search"
	KindPagination   = "pagination"
	KindQuiz         = "quiz"
	KindQuizAnswer   = "quiz_answer"
	KindSession      = "session"
)

// result is implemented by every validation.Result.
type result interface {
	Err() error
}

type validateFunc func(payload any, policy *validation.PasswordPolicy) (result, error)

// validators maps a kind to its validator. Object payloads are passed as
// maps; query-style kinds receive them as url.Values.
var validators = map[string]validateFunc{
	KindRegistration: objectKind(func(p map[string]any, policy *validation.PasswordPolicy) result {
		return validation.ValidateRegistrationData(p, policy)
	}),
	KindLogin: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateLoginData(p)
	}),
	KindUserCreation: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateUserCreationData(p)
	}),
	KindUserUpdate: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateUserUpdateData(p)
	}),
	KindWord: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateWordData(p)
	}),
	KindQuizAnswer: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateQuizAnswer(p)
	}),
	KindPagination: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidatePaginationParams(p[validation.FieldPage], p[validation.FieldLimit])
	}),
	KindTranslate: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateTranslateParams(toValues(p))
	}),
	KindWordsSearch: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateWordsSearchParams(toValues(p))
	}),
	KindQuiz: objectKind(func(p map[string]any, _ *validation.PasswordPolicy) result {
		return validation.ValidateQuizParams(toValues(p))
	}),
	// The session payload is checked as is, so a missing or non-object
	// payload is reported by the validator itself.
	KindSession: func(payload any, _ *validation.PasswordPolicy) (result, error) {
		return validation.ValidateSession(payload), nil
	},
}

func objectKind(fn func(map[string]any, *validation.PasswordPolicy) result) validateFunc {
	return func(payload any, policy *validation.PasswordPolicy) (result, error) {
		if payload == nil {
			return fn(map[string]any{}, policy), nil
		}
		m, ok := payload.(map[string]any)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "payload must be an object")
		}
		return fn(m, policy), nil
	}
}

// toValues renders a payload as a query string would carry it.
func toValues(payload map[string]any) url.Values {
	values := url.Values{}
	for key, v := range payload {
		switch v := v.(type) {
		case nil:
		case string:
			values.Set(key, v)
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	return values
}

// toStruct converts a JSON-encodable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

type validationHandler struct {
	server *Server
}

// Validate runs the validator named by the request's "kind" on its
// "payload" and returns the Result. Invalid input is a successful call
// whose result lists the errors.
func (h *validationHandler) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	kind, _ := fields["kind"].(string)

	validate, ok := validators[kind]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown validation kind %q", kind)
	}

	res, err := validate(fields["payload"], h.server.passwords.Policy())
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		h.server.metrics.ValidationFailed(err.(validation.Errors))
	}

	out, err := toStruct(res)
	if err != nil {
		h.server.logger.Error("failed to encode validation result", "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

type sessionHandler struct{}

// Get returns the identity of the caller's session.
func (h *sessionHandler) Get(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	return toStruct(session)
}

type validationServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type sessionServer interface {
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryStructHandler(method string, call func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var validationServiceDesc = grpc.ServiceDesc{
	ServiceName: validationServiceName,
	HandlerType: (*validationServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Validate",
		Handler: unaryStructHandler("/"+validationServiceName+"/Validate",
			func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(validationServer).Validate(ctx, req)
			}),
	}},
	Streams: []grpc.StreamDesc{},
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionServiceName,
	HandlerType: (*sessionServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Get",
		Handler: unaryStructHandler("/"+sessionServiceName+"/Get",
			func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(sessionServer).Get(ctx, req)
			}),
	}},
	Streams: []grpc.StreamDesc{},
}
