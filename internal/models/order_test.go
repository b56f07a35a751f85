package models

import "testing"

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []OrderItem
		want  string
	}{
		{"fresh order", []OrderItem{{OrderedQuantity: 10}, {OrderedQuantity: 5}}, StatusUncompleted},
		{"one item partially billed", []OrderItem{{OrderedQuantity: 10, BilledQuantity: 4}, {OrderedQuantity: 5}}, StatusPartiallyCompleted},
		{"one item fully billed", []OrderItem{{OrderedQuantity: 10, BilledQuantity: 10}, {OrderedQuantity: 5}}, StatusPartiallyCompleted},
		{"all items fully billed", []OrderItem{{OrderedQuantity: 10, BilledQuantity: 10}, {OrderedQuantity: 5, BilledQuantity: 5}}, StatusCompleted},
		{"zero-quantity item counts as fulfilled", []OrderItem{{OrderedQuantity: 0}, {OrderedQuantity: 3, BilledQuantity: 3}}, StatusCompleted},
		{"no items", nil, StatusUncompleted},
	}
	for _, tc := range cases {
		o := Order{Items: tc.items}
		if got := o.ComputeStatus(); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
