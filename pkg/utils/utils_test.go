package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	qt "github.com/frankban/quicktest"
)

type fakeIMDS struct {
	region string
	err    error
}

func (f fakeIMDS) GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &imds.GetRegionOutput{Region: f.region}, nil
}

func TestResolveRegion(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Assert(ResolveRegion(ctx, "eu-west-1", fakeIMDS{region: "us-west-2"}), qt.Equals, "eu-west-1")
	c.Assert(ResolveRegion(ctx, "", fakeIMDS{region: "us-west-2"}), qt.Equals, "us-west-2")
	c.Assert(ResolveRegion(ctx, "", fakeIMDS{err: errors.New("no IMDS")}), qt.Equals, "us-east-1")
}

func TestRegionNames(t *testing.T) {
	c := qt.New(t)

	c.Assert(GetRegionDescriptiveName("eu-central-1"), qt.Equals, "EU (Frankfurt)")
	c.Assert(GetRegionDescriptiveName("xx-nowhere-1"), qt.Equals, "US East (N. Virginia)")
	c.Assert(IsValidRegion("ap-northeast-2"), qt.IsTrue)
	c.Assert(IsValidRegion("xx-nowhere-1"), qt.IsFalse)
}

func TestGetNestedString(t *testing.T) {
	c := qt.New(t)

	data, err := ParseJSON(`{"pricePerUnit": {"USD": "0.1"}, "unit": "Hrs"}`)
	c.Assert(err, qt.IsNil)

	usd, err := GetNestedString(data, "pricePerUnit", "USD")
	c.Assert(err, qt.IsNil)
	c.Assert(usd, qt.Equals, "0.1")

	_, err = GetNestedString(data, "unit", "USD")
	c.Assert(err, qt.ErrorMatches, "key unit is not a map")

	_, err = GetNestedString(data, "pricePerUnit", "EUR")
	c.Assert(err, qt.ErrorMatches, "key EUR is not a string")
}
