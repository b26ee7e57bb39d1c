package ibmq

import (
	"context"
	"fmt"
	"net/url"
)

// Code represents a code stored on the QX Platform
type Code struct {
	Name         string            `json:"name,omitempty"`
	CreationDate string            `json:"creationDate,omitempty"`
	UserDeleted  bool              `json:"userDeleted,omitempty"`
	UserId       string            `json:"userId,omitempty"`
	Type         string            `json:"type,omitempty"`
	Deleted      bool              `json:"deleted,omitempty"`
	DisplayUrls  map[string]string `json:"displayUrls,omitempty"`
	IsPublic     bool              `json:"isPublic,omitempty"`
	Id           string            `json:"id,omitempty"`
	Qasm         string            `json:"qasm,omitempty"`
	CodeType     string            `json:"codeType,omitempty"`
	OrderDate    float64           `json:"orderDate,omitempty"`
	Active       bool              `json:"active,omitempty"`
	VersionId    float64           `json:"versionId,omitempty"`
	IdCode       string            `json:"idCode,omitempty"`
	Columns      float64           `json:"numberColumns,omitempty"`
	Lines        float64           `json:"numberLines,omitempty"`
	Gates        float64           `json:"numberGates,omitempty"`
	HasMeasure   bool              `json:"hasMeasure,omitempty"`
	Topology     string            `json:"topology,omitempty"`
	HasBloch     bool              `json:"hasBloch,omitempty"`
	GateDefs     interface{}       `json:"gateDefinitions,omitempty"`
	Executions   []Execution       `json:"executions,omitempty"`
}

// codeResp is the wire form of a code document. Embedded executions carry
// their status as an object, so they decode separately and get flattened.
type codeResp struct {
	Code
	Executions []execResp `json:"executions,omitempty"`
}

func (r codeResp) toCode() Code {
	code := r.Code
	for _, raw := range r.Executions {
		code.Executions = append(code.Executions, Execution{
			Id:        raw.Id,
			CodeId:    raw.CodeId,
			Status:    raw.Status.Id,
			InfoQueue: raw.InfoQueue,
			Result:    raw.Result.toResultData(),
		})
	}
	return code
}

// GetCode retrieves a code by its id
func (c *Client) GetCode(ctx context.Context, codeId string) (Code, error) {
	if codeId == "" {
		return Code{}, &APIError{UserMsg: "code id not specified"}
	}

	data, err := c.conn.get(ctx, fmt.Sprintf("Codes/%s", codeId), nil)
	if err != nil {
		return Code{}, err
	}

	var r codeResp
	if err := c.conn.decode(data, &r); err != nil {
		return Code{}, err
	}
	return r.toCode(), nil
}

type latestCodesResp struct {
	Err   *httpErr   `json:"error,omitempty"`
	Total float64    `json:"total,omitempty"`
	Count float64    `json:"count,omitempty"`
	Codes []codeResp `json:"codes,omitempty"`
}

// GetLastCodes returns the last codes of the user, executions included
func (c *Client) GetLastCodes(ctx context.Context) ([]Code, error) {
	params := url.Values{}
	params.Set("includeExecutions", "true")

	data, err := c.conn.get(ctx, fmt.Sprintf("users/%s/codes/latest", c.conn.UserID()), params)
	if err != nil {
		return nil, err
	}

	var latest latestCodesResp
	if err := c.conn.decode(data, &latest); err != nil {
		return nil, err
	}
	if latest.Err != nil {
		return nil, latest.Err.asAPIError()
	}

	codes := make([]Code, 0, len(latest.Codes))
	for _, r := range latest.Codes {
		codes = append(codes, r.toCode())
	}
	return codes, nil
}

type imageResp struct {
	Err *httpErr `json:"error,omitempty"`
	Url string   `json:"url,omitempty"`
}

// GetImageCode retrieves the url of the rendered image of a code
func (c *Client) GetImageCode(ctx context.Context, codeId string) (string, error) {
	if codeId == "" {
		return "", &APIError{UserMsg: "code id not specified"}
	}

	data, err := c.conn.get(ctx, fmt.Sprintf("Codes/%s/export/png/url", codeId), nil)
	if err != nil {
		return "", err
	}

	var r imageResp
	if err := c.conn.decode(data, &r); err != nil {
		return "", err
	}
	if r.Err != nil {
		return "", r.Err.asAPIError()
	}
	return r.Url, nil
}
