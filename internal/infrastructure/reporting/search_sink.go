package reporting

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

// SearchSink indexes each report as one document keyed by run id.
type SearchSink struct {
	Client *elasticsearch.Client
	Index  string
}

func NewSearchSink(client *elasticsearch.Client, index string) *SearchSink {
	return &SearchSink{Client: client, Index: index}
}

func (s *SearchSink) Name() string { return "elasticsearch" }

func (s *SearchSink) Publish(ctx context.Context, report *entity.Report) error {
	return helpers.IndexJSON(ctx, s.Client, s.Index, report.RunID, report)
}
