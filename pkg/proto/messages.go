// Package proto holds the wire types and gRPC service stubs for the Master
// RPC service defined in proto/token/v1/token.proto, in the shape
// protoc-gen-go/protoc-gen-go-grpc emit for a flat, map/no-oneof message
// set.
package proto

import "fmt"

// Token is the wire form of pkg/token.Token. Field numbers match
// proto/token/v1/token.proto and are fixed for compatibility.
type Token struct {
	Version        int64   `protobuf:"varint,1,opt,name=version,proto3" json:"version,omitempty"`
	Name           string  `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Owner          string  `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
	ExpirationTime int64   `protobuf:"varint,4,opt,name=expiration_time,json=expirationTime,proto3" json:"expiration_time,omitempty"`
	Priority       float64 `protobuf:"fixed64,5,opt,name=priority,proto3" json:"priority,omitempty"`
	Data           []byte  `protobuf:"bytes,6,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *Token) Reset()         { *m = Token{} }
func (m *Token) String() string { return fmt.Sprintf("%+v", *m) }
func (*Token) ProtoMessage()    {}

func (m *Token) GetVersion() int64 {
	if m != nil {
		return m.Version
	}
	return 0
}

func (m *Token) GetName() string {
	if m != nil {
		return m.Name
	}
	return ""
}

func (m *Token) GetOwner() string {
	if m != nil {
		return m.Owner
	}
	return ""
}

func (m *Token) GetExpirationTime() int64 {
	if m != nil {
		return m.ExpirationTime
	}
	return 0
}

func (m *Token) GetPriority() float64 {
	if m != nil {
		return m.Priority
	}
	return 0
}

func (m *Token) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

type ErrorCode int32

const (
	ErrorCode_ERROR_CODE_UNKNOWN          ErrorCode = 0
	ErrorCode_ERROR_CODE_VERSION_CONFLICT ErrorCode = 1
	ErrorCode_ERROR_CODE_NOT_FOUND        ErrorCode = 2
	ErrorCode_ERROR_CODE_INPUT_ERROR      ErrorCode = 3
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorCode_ERROR_CODE_VERSION_CONFLICT:
		return "VERSION_CONFLICT"
	case ErrorCode_ERROR_CODE_NOT_FOUND:
		return "NOT_FOUND"
	case ErrorCode_ERROR_CODE_INPUT_ERROR:
		return "INPUT_ERROR"
	default:
		return "UNKNOWN"
	}
}

type GroupRequest struct {
	Prefix      string `protobuf:"bytes,1,opt,name=prefix,proto3" json:"prefix,omitempty"`
	GroupSuffix string `protobuf:"bytes,2,opt,name=group_suffix,json=groupSuffix,proto3" json:"group_suffix,omitempty"`
}

func (m *GroupRequest) Reset()         { *m = GroupRequest{} }
func (m *GroupRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*GroupRequest) ProtoMessage()    {}

func (m *GroupRequest) GetPrefix() string {
	if m != nil {
		return m.Prefix
	}
	return ""
}

func (m *GroupRequest) GetGroupSuffix() string {
	if m != nil {
		return m.GroupSuffix
	}
	return ""
}

type GroupResponse struct {
	Counts map[string]int64 `protobuf:"bytes,1,rep,name=counts,proto3" json:"counts,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"varint,2,opt,name=value,proto3"`
}

func (m *GroupResponse) Reset()         { *m = GroupResponse{} }
func (m *GroupResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*GroupResponse) ProtoMessage()    {}

func (m *GroupResponse) GetCounts() map[string]int64 {
	if m != nil {
		return m.Counts
	}
	return nil
}

type NameQuery struct {
	NamePrefix string `protobuf:"bytes,1,opt,name=name_prefix,json=namePrefix,proto3" json:"name_prefix,omitempty"`
	MaxTokens  int32  `protobuf:"varint,2,opt,name=max_tokens,json=maxTokens,proto3" json:"max_tokens,omitempty"`
}

func (m *NameQuery) Reset()         { *m = NameQuery{} }
func (m *NameQuery) String() string { return fmt.Sprintf("%+v", *m) }
func (*NameQuery) ProtoMessage()    {}

func (m *NameQuery) GetNamePrefix() string {
	if m != nil {
		return m.NamePrefix
	}
	return ""
}

func (m *NameQuery) GetMaxTokens() int32 {
	if m != nil {
		return m.MaxTokens
	}
	return 0
}

type QueryRequest struct {
	Queries []*NameQuery `protobuf:"bytes,1,rep,name=queries,proto3" json:"queries,omitempty"`
}

func (m *QueryRequest) Reset()         { *m = QueryRequest{} }
func (m *QueryRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*QueryRequest) ProtoMessage()    {}

func (m *QueryRequest) GetQueries() []*NameQuery {
	if m != nil {
		return m.Queries
	}
	return nil
}

type TokenList struct {
	Tokens []*Token `protobuf:"bytes,1,rep,name=tokens,proto3" json:"tokens,omitempty"`
}

func (m *TokenList) Reset()         { *m = TokenList{} }
func (m *TokenList) String() string { return fmt.Sprintf("%+v", *m) }
func (*TokenList) ProtoMessage()    {}

func (m *TokenList) GetTokens() []*Token {
	if m != nil {
		return m.Tokens
	}
	return nil
}

type QueryResponse struct {
	Results []*TokenList `protobuf:"bytes,1,rep,name=results,proto3" json:"results,omitempty"`
}

func (m *QueryResponse) Reset()         { *m = QueryResponse{} }
func (m *QueryResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*QueryResponse) ProtoMessage()    {}

func (m *QueryResponse) GetResults() []*TokenList {
	if m != nil {
		return m.Results
	}
	return nil
}

type ModifyRequest struct {
	Updates []*Token `protobuf:"bytes,1,rep,name=updates,proto3" json:"updates,omitempty"`
	Deletes []*Token `protobuf:"bytes,2,rep,name=deletes,proto3" json:"deletes,omitempty"`
}

func (m *ModifyRequest) Reset()         { *m = ModifyRequest{} }
func (m *ModifyRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ModifyRequest) ProtoMessage()    {}

func (m *ModifyRequest) GetUpdates() []*Token {
	if m != nil {
		return m.Updates
	}
	return nil
}

func (m *ModifyRequest) GetDeletes() []*Token {
	if m != nil {
		return m.Deletes
	}
	return nil
}

type ModifyResponse struct {
	Updates []*Token `protobuf:"bytes,1,rep,name=updates,proto3" json:"updates,omitempty"`
}

func (m *ModifyResponse) Reset()         { *m = ModifyResponse{} }
func (m *ModifyResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ModifyResponse) ProtoMessage()    {}

func (m *ModifyResponse) GetUpdates() []*Token {
	if m != nil {
		return m.Updates
	}
	return nil
}

type QueryAndOwnRequest struct {
	Owner          string     `protobuf:"bytes,1,opt,name=owner,proto3" json:"owner,omitempty"`
	ExpirationTime int64      `protobuf:"varint,2,opt,name=expiration_time,json=expirationTime,proto3" json:"expiration_time,omitempty"`
	Query          *NameQuery `protobuf:"bytes,3,opt,name=query,proto3" json:"query,omitempty"`
}

func (m *QueryAndOwnRequest) Reset()         { *m = QueryAndOwnRequest{} }
func (m *QueryAndOwnRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*QueryAndOwnRequest) ProtoMessage()    {}

func (m *QueryAndOwnRequest) GetOwner() string {
	if m != nil {
		return m.Owner
	}
	return ""
}

func (m *QueryAndOwnRequest) GetExpirationTime() int64 {
	if m != nil {
		return m.ExpirationTime
	}
	return 0
}

func (m *QueryAndOwnRequest) GetQuery() *NameQuery {
	if m != nil {
		return m.Query
	}
	return nil
}

type QueryAndOwnResponse struct {
	Tokens []*Token `protobuf:"bytes,1,rep,name=tokens,proto3" json:"tokens,omitempty"`
}

func (m *QueryAndOwnResponse) Reset()         { *m = QueryAndOwnResponse{} }
func (m *QueryAndOwnResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*QueryAndOwnResponse) ProtoMessage()    {}

func (m *QueryAndOwnResponse) GetTokens() []*Token {
	if m != nil {
		return m.Tokens
	}
	return nil
}

type ArchiveRequest struct {
	Tokens []*Token `protobuf:"bytes,1,rep,name=tokens,proto3" json:"tokens,omitempty"`
}

func (m *ArchiveRequest) Reset()         { *m = ArchiveRequest{} }
func (m *ArchiveRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ArchiveRequest) ProtoMessage()    {}

func (m *ArchiveRequest) GetTokens() []*Token {
	if m != nil {
		return m.Tokens
	}
	return nil
}

type ArchiveResponse struct{}

func (m *ArchiveResponse) Reset()         { *m = ArchiveResponse{} }
func (m *ArchiveResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ArchiveResponse) ProtoMessage()    {}
